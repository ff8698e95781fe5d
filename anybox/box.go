// Package anybox implements Box, a reference counted slot holding one
// value of any script type.
package anybox

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cvet/scriptcore/counters"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/typed"
)

var Created = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "anybox",
	Name:      "created",
})

var Destroyed = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "anybox",
	Name:      "destroyed",
})

type Box struct {
	refs counters.RefCount
	h    host.Host
	val  typed.Value
}

var _ host.Collectable = (*Box)(nil)

// New returns an empty box holding one reference for the caller.
func New(h host.Host) *Box {
	b := &Box{h: h}
	b.refs.Init()
	Created.Inc()
	h.Collector().NotifyNewObject(b, typeInfo(h))
	return b
}

func NewWith(h host.Host, ref any, id host.TypeID) *Box {
	b := New(h)
	b.Store(ref, id)
	return b
}

func (b *Box) storable(id host.TypeID) bool {
	if id.IsObject() {
		return b.h.TypeInfoByID(id) != nil
	}
	switch id {
	case host.TypeVoid, host.TypeBool, host.TypeInt64, host.TypeDouble:
		return true
	}
	return false
}

// Store replaces the held value with a copy of the value behind ref.
// Handles are shared, objects are copied, scalars are copied bytewise.
func (b *Box) Store(ref any, id host.TypeID) {
	if !b.storable(id) {
		panic(script_errors.ErrInvalidTypeID)
	}
	if id.IsObject() {
		b.h.TypeInfoByID(id).AddRef()
	}
	b.free()
	if id == host.TypeVoid {
		return
	}
	b.val = typed.Capture(b.h, ref, id)
}

func (b *Box) StoreInt(n int64) {
	b.Store(&n, host.TypeInt64)
}

func (b *Box) StoreFloat(f float64) {
	b.Store(&f, host.TypeDouble)
}

// Retrieve writes the held value into ref if it can be had as type id.
// A mismatch returns false and leaves ref untouched, except for handle
// requests which always write the cast result.
func (b *Box) Retrieve(ref any, id host.TypeID) bool {
	held := b.val.TypeID()
	switch {
	case id.IsHandle():
		k := b.val.Kind()
		if k != typed.Handle && k != typed.Owned {
			return false
		}
		obj := b.val.Object()
		if obj != nil {
			cast, ok := b.h.RefCastObject(obj, b.h.TypeInfoByID(held), b.h.TypeInfoByID(id))
			if ok {
				host.StoreHandle(ref, cast)
				return true
			}
		}
		host.StoreHandle(ref, nil)
		return false
	case id.IsObject():
		if held != id || b.val.Kind() != typed.Owned {
			return false
		}
		b.val.CopyOut(b.h, ref)
		return true
	}
	switch {
	case held == id && !held.IsObject():
		if id != host.TypeVoid {
			b.val.CopyOut(b.h, ref)
		}
		return true
	case held == host.TypeInt64 && id == host.TypeDouble:
		host.StoreBits(ref, 8, math.Float64bits(float64(b.val.Int())))
		return true
	case held == host.TypeDouble && id == host.TypeInt64:
		host.StoreBits(ref, 8, uint64(int64(b.val.Float())))
		return true
	}
	return false
}

func (b *Box) RetrieveInt(out *int64) bool {
	return b.Retrieve(out, host.TypeInt64)
}

func (b *Box) RetrieveFloat(out *float64) bool {
	return b.Retrieve(out, host.TypeDouble)
}

// Assign makes b hold a copy of what other holds, or nothing.
func (b *Box) Assign(other *Box) {
	if other == b {
		return
	}
	if other.val.IsEmpty() {
		b.free()
		return
	}
	v := other.val
	if v.Kind() != typed.Primitive {
		b.h.TypeInfoByID(v.TypeID()).AddRef()
	}
	// other may live only through b
	v = v.Clone(b.h)
	b.free()
	b.val = v
}

func (b *Box) CopyFrom(other *Box) error {
	if other == nil {
		return script_errors.ErrInvalidArg
	}
	b.Assign(other)
	return nil
}

// TypeID is TypeVoid for an empty box.
func (b *Box) TypeID() host.TypeID {
	return b.val.TypeID()
}

func (b *Box) Value() typed.Value {
	return b.val
}

// free drops the value and the descriptor reference taken with it.
func (b *Box) free() {
	k := b.val.Kind()
	if k != typed.Handle && k != typed.Owned {
		b.val = typed.Value{}
		return
	}
	ti := b.h.TypeInfoByID(b.val.TypeID())
	b.val.Free(b.h)
	if ti != nil {
		ti.Release()
	}
}

func (b *Box) AddRef() {
	b.refs.AddRef()
}

func (b *Box) Release() {
	if b.refs.Release() {
		b.free()
		Destroyed.Inc()
	}
}

func (b *Box) GetRefCount() int {
	return b.refs.Count()
}

func (b *Box) SetFlag() {
	b.refs.SetFlag()
}

func (b *Box) GetFlag() bool {
	return b.refs.Flag()
}

func (b *Box) EnumReferences(mark func(ref any)) {
	k := b.val.Kind()
	if (k == typed.Handle || k == typed.Owned) && b.val.Object() != nil {
		mark(b.val.Object())
		mark(b.h.TypeInfoByID(b.val.TypeID()))
	}
}

func (b *Box) ReleaseAllHandles() {
	b.free()
}
