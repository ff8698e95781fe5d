package typed

import (
	"math"

	"github.com/cvet/scriptcore/host"
)

type Kind uint8

const (
	Empty Kind = iota
	Primitive
	Owned
	Handle
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Owned:
		return "owned"
	case Handle:
		return "handle"
	default:
		return "empty"
	}
}

// Value is one stored script value. The kind follows from the type id at
// capture time and never changes without a fresh capture.
type Value struct {
	typeID host.TypeID
	kind   Kind
	bits   uint64
	obj    any
}

func KindOf(id host.TypeID) Kind {
	switch {
	case id.IsHandle():
		return Handle
	case id.IsObject():
		return Owned
	default:
		return Primitive
	}
}

// Capture copies the value behind ref under the storage rules: handles
// gain a reference, objects are copy-constructed, scalars are copied.
// Descriptor references are the caller's business.
func Capture(h host.Host, ref any, id host.TypeID) Value {
	v := Value{typeID: id, kind: KindOf(id)}
	switch v.kind {
	case Handle:
		v.obj = host.LoadHandle(ref)
		if v.obj != nil {
			h.AddRefObject(v.obj, h.TypeInfoByID(id))
		}
	case Owned:
		v.obj = h.CreateObjectCopy(ref, h.TypeInfoByID(id))
	default:
		v.bits = host.LoadBits(ref, h.SizeOfPrimitive(id))
	}
	return v
}

// Borrow wraps ref for comparison without copying or referencing.
func Borrow(h host.Host, ref any, id host.TypeID) Value {
	v := Value{typeID: id, kind: KindOf(id)}
	switch v.kind {
	case Handle:
		v.obj = host.LoadHandle(ref)
	case Owned:
		v.obj = ref
	default:
		v.bits = host.LoadBits(ref, h.SizeOfPrimitive(id))
	}
	return v
}

// Default is a freshly default-constructed value of the type.
func Default(h host.Host, id host.TypeID) Value {
	v := Value{typeID: id, kind: KindOf(id)}
	if v.kind == Owned {
		v.obj = h.CreateObject(h.TypeInfoByID(id))
	}
	return v
}

func FromInt(n int64) Value {
	return Value{typeID: host.TypeInt64, kind: Primitive, bits: uint64(n)}
}

func FromFloat(f float64) Value {
	return Value{typeID: host.TypeDouble, kind: Primitive, bits: math.Float64bits(f)}
}

// Clone is a second independent holding of v.
func (v Value) Clone(h host.Host) Value {
	switch v.kind {
	case Handle:
		if v.obj != nil {
			h.AddRefObject(v.obj, h.TypeInfoByID(v.typeID))
		}
	case Owned:
		if v.obj != nil {
			v.obj = h.CreateObjectCopy(v.obj, h.TypeInfoByID(v.typeID))
		}
	}
	return v
}

// Free releases whatever v holds and leaves it empty.
func (v *Value) Free(h host.Host) {
	if (v.kind == Handle || v.kind == Owned) && v.obj != nil {
		h.ReleaseObject(v.obj, h.TypeInfoByID(v.typeID))
	}
	*v = Value{}
}

// CopyOut writes v into ref, which must be of v's exact type.
func (v Value) CopyOut(h host.Host, ref any) {
	switch v.kind {
	case Handle:
		if v.obj != nil {
			h.AddRefObject(v.obj, h.TypeInfoByID(v.typeID))
		}
		host.StoreHandle(ref, v.obj)
	case Owned:
		h.AssignObject(ref, v.obj, h.TypeInfoByID(v.typeID))
	case Primitive:
		host.StoreBits(ref, h.SizeOfPrimitive(v.typeID), v.bits)
	}
}

func (v Value) TypeID() host.TypeID {
	return v.typeID
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsEmpty() bool {
	return v.kind == Empty
}

// Bits is the zero-extended scalar of a primitive.
func (v Value) Bits() uint64 {
	return v.bits
}

// Object is the held instance or handle target, nil for primitives.
func (v Value) Object() any {
	return v.obj
}

// Ref is a pointer usable as a source ref of v's type.
func (v Value) Ref() any {
	switch v.kind {
	case Handle:
		obj := v.obj
		return &obj
	case Owned:
		return v.obj
	default:
		bits := v.bits
		return &bits
	}
}

func (v Value) Int() int64 {
	return int64(v.bits)
}

func (v Value) Float() float64 {
	return math.Float64frombits(v.bits)
}
