package host

import (
	"github.com/cvet/scriptcore/utils"
)

/*
	TypeID is the engine's 32-bit type locator.

0..............................26......28......30..31
+-------------------------------+-------+-------+---+
|......sequence.(26.bits).......|objmask|hc|hnd|...|
*/
type TypeID int32

const (
	TypeVoid TypeID = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat
	TypeDouble
)

const (
	TypeObjHandle     TypeID = 0x40000000
	TypeHandleToConst TypeID = 0x20000000
	TypeMaskObject    TypeID = 0x1C000000
	TypeAppObject     TypeID = 0x04000000
	TypeScriptObject  TypeID = 0x08000000
	TypeTemplate      TypeID = 0x10000000
	TypeMaskSeqNbr    TypeID = 0x03FFFFFF
)

func (id TypeID) IsObject() bool {
	return id&TypeMaskObject != 0
}

func (id TypeID) IsHandle() bool {
	return id&TypeObjHandle != 0
}

// IsOwned is an object held by value: copied in, destroyed on release.
func (id TypeID) IsOwned() bool {
	return id.IsObject() && !id.IsHandle()
}

func (id TypeID) IsPrimitive() bool {
	return !id.IsObject()
}

// Bare strips the handle and const bits.
func (id TypeID) Bare() TypeID {
	return id &^ (TypeObjHandle | TypeHandleToConst)
}

func (id TypeID) Handle() TypeID {
	return id | TypeObjHandle
}

type TypeFlags uint32

const (
	FlagRef TypeFlags = 1 << iota
	FlagValue
	FlagGC
	FlagPOD
	FlagScriptObject
	FlagNoInherit
	FlagNoCount
	FlagTemplate
)

func (f TypeFlags) Has(flag TypeFlags) bool {
	return f&flag != 0
}

// TypeInfo is a registered type descriptor. Descriptors are reference
// counted: a container holding a value of the type holds a reference.
type TypeInfo interface {
	TypeID() TypeID
	Name() string
	Flags() TypeFlags
	Size() int
	SubTypeCount() int
	SubTypeID(i int) TypeID
	SubType(i int) TypeInfo
	HasDefaultConstructor() bool
	HasDefaultFactory() bool
	AddRef()
	Release()
	Host() Host
}

// Host is the type bridge the containers consume.
type Host interface {
	TypeInfoByID(id TypeID) TypeInfo
	TypeIDByDecl(decl string) (TypeID, error)
	SizeOfPrimitive(id TypeID) int

	CreateObject(ti TypeInfo) any
	CreateObjectCopy(src any, ti TypeInfo) any
	AssignObject(dst, src any, ti TypeInfo)
	AddRefObject(obj any, ti TypeInfo)
	ReleaseObject(obj any, ti TypeInfo)
	// RefCastObject adds a reference to the result on success.
	RefCastObject(obj any, from, to TypeInfo) (any, bool)

	DisallowValueAssignForRefType() bool
	Collector() Collector
	Logger() utils.Logger

	UserData(key any) any
	// SetUserData stores v unless the slot is taken; returns the slot value.
	SetUserData(key any, v any) any
}

// Collectable is the five-call protocol (plus addref/release) a
// tracing collector drives to find and break reference cycles.
type Collectable interface {
	AddRef()
	Release()
	GetRefCount() int
	SetFlag()
	GetFlag() bool
	EnumReferences(mark func(ref any))
	ReleaseAllHandles()
}

// Collector is told about every collectable created. It must not
// take a reference.
type Collector interface {
	NotifyNewObject(obj Collectable, ti TypeInfo)
}

type NopCollector struct{}

func (NopCollector) NotifyNewObject(Collectable, TypeInfo) {}

// Kind is the storage shape of a type id.
type Kind struct {
	Object bool
	Handle bool
	Size   int
}

func KindOf(h Host, id TypeID) Kind {
	if id.IsObject() {
		return Kind{Object: true, Handle: id.IsHandle()}
	}
	return Kind{Size: h.SizeOfPrimitive(id)}
}

// PrimitiveSize is the byte size of a built-in primitive or an enum.
func PrimitiveSize(id TypeID) int {
	switch id {
	case TypeVoid:
		return 0
	case TypeBool, TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt64, TypeUint64, TypeDouble:
		return 8
	default:
		return 4
	}
}
