package registry

import (
	"reflect"
	"sync/atomic"

	"github.com/cvet/scriptcore/host"
)

// TypeSpec describes a type to register. Funcs left nil fall back to
// reflection over GoType: instances and handles are *GoType.
type TypeSpec struct {
	Name   string
	Flags  host.TypeFlags
	GoType reflect.Type
	// Base names the registered parent for handle casts.
	Base string
	Size int

	// NoDefault hides the reflective default constructor.
	NoDefault bool

	New     func(ti host.TypeInfo) any
	Copy    func(ti host.TypeInfo, src any) any
	Assign  func(ti host.TypeInfo, dst, src any)
	AddRef  func(obj any)
	Release func(obj any)
}

// TemplateSpec describes a template. Callback runs once per concrete
// instance; a false needGC drops FlagGC from the instance.
type TemplateSpec struct {
	Name     string
	SubTypes int
	Flags    host.TypeFlags
	Callback func(ti host.TypeInfo) (needGC bool, err error)

	New     func(ti host.TypeInfo) any
	Copy    func(ti host.TypeInfo, src any) any
	Assign  func(ti host.TypeInfo, dst, src any)
	AddRef  func(obj any)
	Release func(obj any)
}

// Type is a registered descriptor. The registry holds one reference on
// it for as long as it lives.
type Type struct {
	id     host.TypeID
	name   string
	flags  host.TypeFlags
	size   int
	subIDs []host.TypeID
	base   *Type
	goType reflect.Type
	spec   TypeSpec
	refs   atomic.Int32
	reg    *Registry
}

var _ host.TypeInfo = (*Type)(nil)

func (t *Type) TypeID() host.TypeID {
	return t.id
}

func (t *Type) Name() string {
	return t.name
}

func (t *Type) Flags() host.TypeFlags {
	return t.flags
}

func (t *Type) Size() int {
	return t.size
}

func (t *Type) SubTypeCount() int {
	return len(t.subIDs)
}

func (t *Type) SubTypeID(i int) host.TypeID {
	if i < 0 || i >= len(t.subIDs) {
		return host.TypeVoid
	}
	return t.subIDs[i]
}

// SubType is nil for primitive subtypes.
func (t *Type) SubType(i int) host.TypeInfo {
	id := t.SubTypeID(i)
	if !id.IsObject() {
		if e, ok := t.reg.byID.Load(id); ok {
			return e
		}
		return nil
	}
	if s, ok := t.reg.byID.Load(id.Bare()); ok {
		return s
	}
	return nil
}

func (t *Type) HasDefaultConstructor() bool {
	return t.flags.Has(host.FlagValue) && t.spec.New != nil
}

func (t *Type) HasDefaultFactory() bool {
	return t.flags.Has(host.FlagRef) && t.spec.New != nil
}

func (t *Type) AddRef() {
	t.refs.Add(1)
}

func (t *Type) Release() {
	if t.refs.Add(-1) <= 0 {
		t.reg.log.Warn("type descriptor over-released", "type", t.name)
	}
}

// RefCount is the number of holders of this descriptor, the registry
// included.
func (t *Type) RefCount() int {
	return int(t.refs.Load())
}

func (t *Type) Host() host.Host {
	return t.reg
}

func (t *Type) isA(other *Type) bool {
	for c := t; c != nil; c = c.base {
		if c == other {
			return true
		}
	}
	return false
}

// fillDefaults wires reflective fallbacks for funcs the TypeSpec left nil.
func (t *Type) fillDefaults() {
	s := &t.spec
	gt := t.goType
	if s.New == nil && gt != nil && !s.NoDefault {
		s.New = func(host.TypeInfo) any {
			return reflect.New(gt).Interface()
		}
	}
	if s.Assign == nil && gt != nil {
		s.Assign = func(_ host.TypeInfo, dst, src any) {
			reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(src).Elem())
		}
	}
	if s.Copy == nil {
		s.Copy = func(ti host.TypeInfo, src any) any {
			if s.New == nil || s.Assign == nil {
				return nil
			}
			obj := s.New(ti)
			s.Assign(ti, obj, src)
			return obj
		}
	}
	if s.AddRef == nil {
		s.AddRef = func(obj any) {
			if c, ok := obj.(interface{ AddRef() }); ok {
				c.AddRef()
			}
		}
	}
	if s.Release == nil {
		s.Release = func(obj any) {
			if c, ok := obj.(interface{ Release() }); ok {
				c.Release()
			}
		}
	}
}
