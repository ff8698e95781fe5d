// Package dict implements Dict, an ordered map between two script types
// fixed when the dict is declared.
package dict

import (
	"iter"

	"github.com/google/btree"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cvet/scriptcore/counters"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/typed"
)

var Created = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "dict",
	Name:      "created",
})

var Destroyed = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "dict",
	Name:      "destroyed",
})

const degree = 16

type entry struct {
	key typed.Value
	val typed.Value
}

type Dict struct {
	refs counters.RefCount
	h    host.Host
	ti   host.TypeInfo

	keyID, valID   host.TypeID
	keyObj, valObj bool
	// descriptors of the object-shaped sides, held while the dict lives
	subs []host.TypeInfo

	keys   Comparator
	values Comparator
	// set when the value type has no order; only RemoveValues and
	// Equals need one
	valErr error

	tree *btree.BTreeG[*entry]
}

var _ host.Collectable = (*Dict)(nil)

// New creates an empty dict of the declared template instance ti.
func New(ti host.TypeInfo) (*Dict, error) {
	if ti == nil || ti.SubTypeCount() != 2 {
		return nil, script_errors.ErrInvalidArg
	}
	h := ti.Host()
	table := Comparators(h)
	d := &Dict{
		h:     h,
		ti:    ti,
		keyID: ti.SubTypeID(0),
		valID: ti.SubTypeID(1),
	}
	var err error
	if d.keys, err = table.Resolve(d.keyID); err != nil {
		return nil, err
	}
	d.values, d.valErr = table.Resolve(d.valID)
	d.keyObj = d.keyID.IsObject()
	d.valObj = d.valID.IsObject()
	less := d.keys.Less
	d.tree = btree.NewG(degree, func(a, b *entry) bool {
		return less(a.key, b.key)
	})
	for _, id := range []host.TypeID{d.keyID, d.valID} {
		if sub := h.TypeInfoByID(id); id.IsObject() && sub != nil {
			sub.AddRef()
			d.subs = append(d.subs, sub)
		}
	}
	ti.AddRef()
	d.refs.Init()
	Created.Inc()
	if ti.Flags().Has(host.FlagGC) {
		h.Collector().NotifyNewObject(d, ti)
	}
	return d, nil
}

// NewFromList decodes alternating key and value refs.
func NewFromList(ti host.TypeInfo, list []any) (*Dict, error) {
	if len(list)%2 != 0 {
		return nil, script_errors.ErrBadInitList
	}
	d, err := New(ti)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(list); i += 2 {
		d.Set(list[i], list[i+1])
	}
	return d, nil
}

func NewFrom(ti host.TypeInfo, other *Dict) (*Dict, error) {
	if other == nil {
		return nil, script_errors.ErrNullContainer
	}
	d, err := New(ti)
	if err != nil {
		return nil, err
	}
	d.Assign(other)
	return d, nil
}

func (d *Dict) Clone() *Dict {
	c, _ := NewFrom(d.ti, d)
	return c
}

func (d *Dict) probe(key any) *entry {
	return &entry{key: typed.Borrow(d.h, key, d.keyID)}
}

func (d *Dict) find(key any) (*entry, bool) {
	return d.tree.Get(d.probe(key))
}

func (d *Dict) free(e *entry) {
	e.key.Free(d.h)
	e.val.Free(d.h)
}

// Set inserts a copy of the pair, or replaces only the value when the
// key is present.
func (d *Dict) Set(key, value any) {
	if e, ok := d.find(key); ok {
		v := typed.Capture(d.h, value, d.valID)
		e.val.Free(d.h)
		e.val = v
		return
	}
	d.tree.ReplaceOrInsert(&entry{
		key: typed.Capture(d.h, key, d.keyID),
		val: typed.Capture(d.h, value, d.valID),
	})
}

func (d *Dict) SetIfNotExist(key, value any) {
	if _, ok := d.find(key); ok {
		return
	}
	d.Set(key, value)
}

func (d *Dict) Remove(key any) bool {
	e, ok := d.tree.Delete(d.probe(key))
	if ok {
		d.free(e)
	}
	return ok
}

// RemoveValues drops every entry whose value equals value.
func (d *Dict) RemoveValues(value any) (int, error) {
	if d.valErr != nil {
		return 0, d.valErr
	}
	v := typed.Borrow(d.h, value, d.valID)
	var doomed []*entry
	d.tree.Ascend(func(e *entry) bool {
		if d.values.Equals(e.val, v) {
			doomed = append(doomed, e)
		}
		return true
	})
	for _, e := range doomed {
		d.tree.Delete(e)
		d.free(e)
	}
	return len(doomed), nil
}

func (d *Dict) Clear() {
	if d.tree.Len() == 0 {
		return
	}
	all := d.entries()
	d.tree.Clear(false)
	for _, e := range all {
		d.free(e)
	}
}

// Get copies the value of key into out.
func (d *Dict) Get(key, out any) error {
	e, ok := d.find(key)
	if !ok {
		return script_errors.ErrKeyNotFound
	}
	e.val.CopyOut(d.h, out)
	return nil
}

// GetOrCreate is Get that first inserts a default value for a missing key.
func (d *Dict) GetOrCreate(key, out any) error {
	e, ok := d.find(key)
	if !ok {
		v := typed.Default(d.h, d.valID)
		if v.Kind() == typed.Owned && v.Object() == nil {
			return script_errors.ErrNoDefaultConstructor
		}
		e = &entry{key: typed.Capture(d.h, key, d.keyID), val: v}
		d.tree.ReplaceOrInsert(e)
	}
	e.val.CopyOut(d.h, out)
	return nil
}

// GetDefault copies the value of key, or fallback when key is absent.
func (d *Dict) GetDefault(key, fallback, out any) {
	if e, ok := d.find(key); ok {
		e.val.CopyOut(d.h, out)
		return
	}
	typed.Borrow(d.h, fallback, d.valID).CopyOut(d.h, out)
}

func (d *Dict) at(i int) (*entry, error) {
	if i < 0 || i >= d.tree.Len() {
		return nil, script_errors.ErrIndexOutOfBounds
	}
	var found *entry
	d.tree.Ascend(func(e *entry) bool {
		if i == 0 {
			found = e
			return false
		}
		i--
		return true
	})
	return found, nil
}

func (d *Dict) GetKey(i int, out any) error {
	e, err := d.at(i)
	if err != nil {
		return err
	}
	e.key.CopyOut(d.h, out)
	return nil
}

func (d *Dict) GetValue(i int, out any) error {
	e, err := d.at(i)
	if err != nil {
		return err
	}
	e.val.CopyOut(d.h, out)
	return nil
}

func (d *Dict) Exists(key any) bool {
	_, ok := d.find(key)
	return ok
}

func (d *Dict) Size() int {
	return d.tree.Len()
}

func (d *Dict) IsEmpty() bool {
	return d.tree.Len() == 0
}

func (d *Dict) sameDecl(other *Dict) bool {
	return d.keyID == other.keyID && d.valID == other.valID
}

func (d *Dict) entries() []*entry {
	all := make([]*entry, 0, d.tree.Len())
	d.tree.Ascend(func(e *entry) bool {
		all = append(all, e)
		return true
	})
	return all
}

// Equals compares declared types, sizes, then entries pairwise in order.
func (d *Dict) Equals(other *Dict) (bool, error) {
	if other == nil {
		return false, script_errors.ErrNullContainer
	}
	if other == d {
		return true, nil
	}
	if !d.sameDecl(other) || d.Size() != other.Size() {
		return false, nil
	}
	if d.valErr != nil {
		return false, d.valErr
	}
	theirs := other.entries()
	i, equal := 0, true
	d.tree.Ascend(func(e *entry) bool {
		t := theirs[i]
		i++
		equal = d.keys.Equals(e.key, t.key) && d.values.Equals(e.val, t.val)
		return equal
	})
	return equal, nil
}

// Assign replaces the contents with copies of other's entries. Dicts of
// a different declared pair are left untouched.
func (d *Dict) Assign(other *Dict) {
	if other == nil || other == d || !d.sameDecl(other) {
		return
	}
	src := other.entries()
	d.Clear()
	for _, e := range src {
		d.tree.ReplaceOrInsert(&entry{key: e.key.Clone(d.h), val: e.val.Clone(d.h)})
	}
}

// All iterates entries in key order. The dict must not be mutated
// while iterating.
func (d *Dict) All() iter.Seq2[typed.Value, typed.Value] {
	return func(yield func(typed.Value, typed.Value) bool) {
		d.tree.Ascend(func(e *entry) bool {
			return yield(e.key, e.val)
		})
	}
}

func (d *Dict) TypeInfo() host.TypeInfo {
	return d.ti
}

func (d *Dict) KeyTypeID() host.TypeID {
	return d.keyID
}

func (d *Dict) ValueTypeID() host.TypeID {
	return d.valID
}

func (d *Dict) AddRef() {
	d.refs.AddRef()
}

func (d *Dict) Release() {
	if d.refs.Release() {
		d.Clear()
		for _, sub := range d.subs {
			sub.Release()
		}
		d.ti.Release()
		Destroyed.Inc()
	}
}

func (d *Dict) GetRefCount() int {
	return d.refs.Count()
}

func (d *Dict) SetFlag() {
	d.refs.SetFlag()
}

func (d *Dict) GetFlag() bool {
	return d.refs.Flag()
}

func (d *Dict) EnumReferences(mark func(ref any)) {
	if d.keyObj || d.valObj {
		d.tree.Ascend(func(e *entry) bool {
			if d.keyObj && e.key.Object() != nil {
				mark(e.key.Object())
			}
			if d.valObj && e.val.Object() != nil {
				mark(e.val.Object())
			}
			return true
		})
	}
	mark(d.ti)
	for i, sub := range d.subs {
		if i > 0 && sub == d.subs[0] {
			continue
		}
		mark(sub)
	}
}

func (d *Dict) ReleaseAllHandles() {
	d.Clear()
}
