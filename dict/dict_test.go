package dict

import (
	"math"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/registry"
	"github.com/cvet/scriptcore/script_errors"
)

type critter struct {
	refs atomic.Int32
}

func newCritter() *critter {
	c := &critter{}
	c.refs.Store(1)
	return c
}

func (c *critter) AddRef()  { c.refs.Add(1) }
func (c *critter) Release() { c.refs.Add(-1) }
func (c *critter) Count() int {
	return int(c.refs.Load())
}

type node struct{ critter }

type vec struct{ X, Y float64 }

type recorder struct {
	objs []host.Collectable
}

func (r *recorder) NotifyNewObject(obj host.Collectable, _ host.TypeInfo) {
	r.objs = append(r.objs, obj)
}

type fixture struct {
	reg *registry.Registry
	rec *recorder
}

func setup(t *testing.T) *fixture {
	return setupWith(t, registry.Options{})
}

func setupWith(t *testing.T, opts registry.Options) *fixture {
	rec := &recorder{}
	opts.Collector = rec
	reg := registry.New(opts)
	require.NoError(t, reg.RegisterStandardTypes())
	require.NoError(t, RegisterTemplate(reg))
	_, err := reg.RegisterRefType(registry.TypeSpec{Name: "critter", GoType: reflect.TypeOf(critter{}), NoDefault: true})
	require.NoError(t, err)
	_, err = reg.RegisterRefType(registry.TypeSpec{Name: "node", Flags: host.FlagGC, GoType: reflect.TypeOf(node{})})
	require.NoError(t, err)
	_, err = reg.RegisterValueType(registry.TypeSpec{Name: "vec", GoType: reflect.TypeOf(vec{})})
	require.NoError(t, err)
	_, err = reg.RegisterEnum("dir")
	require.NoError(t, err)
	return &fixture{reg: reg, rec: rec}
}

func (f *fixture) id(t *testing.T, decl string) host.TypeID {
	id, err := f.reg.TypeIDByDecl(decl)
	require.NoError(t, err)
	return id
}

func (f *fixture) dict(t *testing.T, decl string) *Dict {
	d, err := New(f.reg.TypeInfoByID(f.id(t, decl)))
	require.NoError(t, err)
	return d
}

func (f *fixture) descRefs(t *testing.T, decl string) int {
	ti, ok := f.reg.Type(f.id(t, decl))
	require.True(t, ok)
	return ti.RefCount()
}

func str(s string) *string { return &s }
func i32(n int32) *int32   { return &n }

func TestStringIntScenario(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<string,int>")
	defer d.Release()

	d.Set(str("a"), i32(1))
	d.Set(str("b"), i32(2))
	d.Set(str("a"), i32(3))

	assert.Equal(t, 2, d.Size())
	var out int32
	require.NoError(t, d.Get(str("a"), &out))
	assert.Equal(t, int32(3), out)
	require.NoError(t, d.Get(str("b"), &out))
	assert.Equal(t, int32(2), out)
	assert.False(t, d.Exists(str("c")))
	assert.ErrorIs(t, d.Get(str("c"), &out), script_errors.ErrKeyNotFound)
}

func TestKeyCopied(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<string,vec>")
	defer d.Release()

	k := "k"
	v := vec{1, 2}
	d.Set(&k, &v)
	k = "changed"
	v.X = 9

	var out vec
	require.NoError(t, d.Get(str("k"), &out))
	assert.Equal(t, vec{1, 2}, out)
	assert.False(t, d.Exists(&k))
}

func TestOrderIndependentEquality(t *testing.T) {
	f := setup(t)
	a := f.dict(t, "dict<int,int>")
	b := f.dict(t, "dict<int,int>")
	defer a.Release()
	defer b.Release()

	for _, k := range []int32{3, 1, 2} {
		a.Set(&k, i32(k*10))
	}
	for _, k := range []int32{2, 3, 1} {
		b.Set(&k, i32(k*10))
	}
	eq, err := a.Equals(b)
	require.NoError(t, err)
	assert.True(t, eq)

	for i := 0; i < 3; i++ {
		var ka, kb, va, vb int32
		require.NoError(t, a.GetKey(i, &ka))
		require.NoError(t, b.GetKey(i, &kb))
		require.NoError(t, a.GetValue(i, &va))
		require.NoError(t, b.GetValue(i, &vb))
		assert.Equal(t, int32(i+1), ka)
		assert.Equal(t, ka, kb)
		assert.Equal(t, va, vb)
	}

	b.Set(i32(1), i32(0))
	eq, err = a.Equals(b)
	require.NoError(t, err)
	assert.False(t, eq)

	_, err = a.Equals(nil)
	assert.ErrorIs(t, err, script_errors.ErrNullContainer)
}

func TestClearIdempotent(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,int>")
	defer d.Release()
	d.Clear()
	d.Clear()
	assert.Equal(t, 0, d.Size())
	assert.True(t, d.IsEmpty())

	d.Set(i32(1), i32(1))
	d.Clear()
	assert.True(t, d.IsEmpty())
}

func TestPositionalAccess(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,int>")
	defer d.Release()
	d.Set(i32(5), i32(50))

	var out int32
	assert.ErrorIs(t, d.GetKey(1, &out), script_errors.ErrIndexOutOfBounds)
	assert.ErrorIs(t, d.GetValue(-1, &out), script_errors.ErrIndexOutOfBounds)
	require.NoError(t, d.GetValue(0, &out))
	assert.Equal(t, int32(50), out)
}

func TestRemove(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,int>")
	defer d.Release()
	for k := int32(0); k < 6; k++ {
		d.Set(&k, i32(k%2))
	}
	assert.True(t, d.Remove(i32(0)))
	assert.False(t, d.Remove(i32(0)))

	n, err := d.RemoveValues(i32(1))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = d.RemoveValues(i32(7))
	require.NoError(t, err)
	assert.Zero(t, n)

	var keys []int32
	for k := range d.All() {
		keys = append(keys, int32(k.Bits()))
	}
	assert.Equal(t, []int32{2, 4}, keys)
}

func TestSetIfNotExistAndDefaults(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<string,int>")
	defer d.Release()

	d.SetIfNotExist(str("x"), i32(1))
	d.SetIfNotExist(str("x"), i32(2))
	var out int32
	require.NoError(t, d.Get(str("x"), &out))
	assert.Equal(t, int32(1), out)

	d.GetDefault(str("missing"), i32(-1), &out)
	assert.Equal(t, int32(-1), out)
	assert.False(t, d.Exists(str("missing")))

	out = 99
	require.NoError(t, d.GetOrCreate(str("fresh"), &out))
	assert.Equal(t, int32(0), out)
	assert.True(t, d.Exists(str("fresh")))
	assert.Equal(t, 2, d.Size())
}

func TestGetOrCreateOwned(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,string>")
	defer d.Release()
	out := "junk"
	require.NoError(t, d.GetOrCreate(i32(1), &out))
	assert.Equal(t, "", out)
}

func TestHandleEntries(t *testing.T) {
	f := setup(t)
	base := f.descRefs(t, "dict<int,critter@>")
	d := f.dict(t, "dict<int,critter@>")
	assert.Equal(t, base+1, f.descRefs(t, "dict<int,critter@>"))

	const n = 4
	cs := make([]*critter, n)
	for i := range cs {
		cs[i] = newCritter()
		d.Set(i32(int32(i)), &cs[i])
		assert.Equal(t, 2, cs[i].Count())
	}
	var null *critter
	d.Set(i32(100), &null)

	var got *critter
	require.NoError(t, d.Get(i32(2), &got))
	assert.Same(t, cs[2], got)
	assert.Equal(t, 3, cs[2].Count())
	got.Release()

	marks := 0
	descs := 0
	d.EnumReferences(func(ref any) {
		if _, ok := ref.(host.TypeInfo); ok {
			descs++
			return
		}
		marks++
	})
	assert.Equal(t, n, marks)
	// the instance and critter
	assert.Equal(t, 2, descs)

	d.ReleaseAllHandles()
	assert.Equal(t, 0, d.Size())
	for _, c := range cs {
		assert.Equal(t, 1, c.Count())
	}
	d.Release()
	for _, c := range cs {
		assert.Equal(t, 1, c.Count())
	}
	assert.Equal(t, base, f.descRefs(t, "dict<int,critter@>"))
}

func TestSubtypeDescriptorsHeld(t *testing.T) {
	f := setup(t)
	critterBase := f.descRefs(t, "critter")
	d := f.dict(t, "dict<int,critter@>")
	assert.Equal(t, critterBase+1, f.descRefs(t, "critter"))
	c := newCritter()
	d.Set(i32(1), &c)
	assert.Equal(t, critterBase+1, f.descRefs(t, "critter"))
	d.Release()
	assert.Equal(t, critterBase, f.descRefs(t, "critter"))
	assert.Equal(t, 1, c.Count())

	strBase, vecBase := f.descRefs(t, "string"), f.descRefs(t, "vec")
	sv := f.dict(t, "dict<string,vec>")
	assert.Equal(t, strBase+1, f.descRefs(t, "string"))
	assert.Equal(t, vecBase+1, f.descRefs(t, "vec"))
	sv.Release()
	assert.Equal(t, strBase, f.descRefs(t, "string"))
	assert.Equal(t, vecBase, f.descRefs(t, "vec"))

	same := f.dict(t, "dict<critter@,critter@>")
	assert.Equal(t, critterBase+2, f.descRefs(t, "critter"))
	descs := 0
	same.EnumReferences(func(any) { descs++ })
	assert.Equal(t, 2, descs)
	same.Release()
	assert.Equal(t, critterBase, f.descRefs(t, "critter"))
}

func TestTypedNilHandleEntry(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,critter@>")
	defer d.Release()

	var null *critter
	var h any = null
	d.Set(i32(1), &h)
	assert.Equal(t, 1, d.Size())

	var got any = newCritter()
	require.NoError(t, d.Get(i32(1), &got))
	assert.True(t, got == nil)

	marks := 0
	d.EnumReferences(func(ref any) {
		if _, ok := ref.(host.TypeInfo); !ok {
			marks++
		}
	})
	assert.Zero(t, marks)
}

func TestNaNKeysKeepTheirOwnSlot(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<double,int>")
	defer d.Release()

	one, nan := 1.0, math.NaN()
	d.Set(&one, i32(1))
	d.Set(&nan, i32(2))
	assert.Equal(t, 2, d.Size())

	var got int32
	require.NoError(t, d.Get(&one, &got))
	assert.Equal(t, int32(1), got)
	require.NoError(t, d.Get(&nan, &got))
	assert.Equal(t, int32(2), got)

	var first float64
	require.NoError(t, d.GetKey(0, &first))
	assert.True(t, math.IsNaN(first))
}

func TestPrimitiveEntriesMarkOnlyDescriptor(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,int>")
	defer d.Release()
	d.Set(i32(1), i32(1))
	marks := 0
	d.EnumReferences(func(any) { marks++ })
	assert.Equal(t, 1, marks)
}

func TestHandleKeysNilFirst(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<critter@,int>")
	defer d.Release()
	c := newCritter()
	var null *critter
	d.Set(&c, i32(1))
	d.Set(&null, i32(0))
	assert.Equal(t, 2, d.Size())

	var k *critter
	require.NoError(t, d.GetKey(0, &k))
	assert.Nil(t, k)
	require.NoError(t, d.GetKey(1, &k))
	assert.Same(t, c, k)
	k.Release()

	var out int32
	require.NoError(t, d.Get(&c, &out))
	assert.Equal(t, int32(1), out)
}

func TestEnumKeysSigned(t *testing.T) {
	type dir int32
	f := setup(t)
	d := f.dict(t, "dict<dir,int>")
	defer d.Release()
	for _, k := range []dir{5, -1, 0} {
		d.Set(&k, i32(int32(k)))
	}
	var first dir
	require.NoError(t, d.GetKey(0, &first))
	assert.Equal(t, dir(-1), first)
}

func TestFromList(t *testing.T) {
	f := setup(t)
	ti := f.reg.TypeInfoByID(f.id(t, "dict<string,int>"))
	_, err := NewFromList(ti, []any{str("a")})
	assert.ErrorIs(t, err, script_errors.ErrBadInitList)

	d, err := NewFromList(ti, []any{str("a"), i32(1), str("b"), i32(2), str("a"), i32(3)})
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, 2, d.Size())
	var out int32
	require.NoError(t, d.Get(str("a"), &out))
	assert.Equal(t, int32(3), out)

	_, err = New(nil)
	assert.ErrorIs(t, err, script_errors.ErrInvalidArg)
}

func TestCloneAndAssign(t *testing.T) {
	f := setup(t)
	ti := f.reg.TypeInfoByID(f.id(t, "dict<string,vec>"))
	d, err := New(ti)
	require.NoError(t, err)
	defer d.Release()
	d.Set(str("p"), &vec{1, 1})

	_, err = NewFrom(ti, nil)
	assert.ErrorIs(t, err, script_errors.ErrNullContainer)

	c := d.Clone()
	defer c.Release()
	eq, err := c.Equals(d)
	assert.ErrorIs(t, err, script_errors.ErrUnsupportedComparator)
	assert.False(t, eq)
	assert.Equal(t, 1, c.Size())

	c.Set(str("p"), &vec{2, 2})
	var out vec
	require.NoError(t, d.Get(str("p"), &out))
	assert.Equal(t, vec{1, 1}, out)

	other := f.dict(t, "dict<string,int>")
	defer other.Release()
	other.Set(str("q"), i32(1))
	d.Assign(other)
	assert.Equal(t, 1, d.Size())
	assert.True(t, d.Exists(str("p")))

	d.Assign(c)
	require.NoError(t, d.Get(str("p"), &out))
	assert.Equal(t, vec{2, 2}, out)
}

func TestUnsupportedValueOrder(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,vec>")
	defer d.Release()
	_, err := d.RemoveValues(&vec{})
	assert.ErrorIs(t, err, script_errors.ErrUnsupportedComparator)

	_, err = New(f.reg.TypeInfoByID(f.id(t, "dict<vec,int>")))
	assert.ErrorIs(t, err, script_errors.ErrUnsupportedComparator)
}

func TestCollectorRegistration(t *testing.T) {
	f := setup(t)
	plain := f.dict(t, "dict<int,critter@>")
	defer plain.Release()
	assert.Empty(t, f.rec.objs)

	gc := f.dict(t, "dict<int,node@>")
	defer gc.Release()
	require.Len(t, f.rec.objs, 1)
	assert.Same(t, gc, f.rec.objs[0])
}

func TestAllStopsEarly(t *testing.T) {
	f := setup(t)
	d := f.dict(t, "dict<int,int>")
	defer d.Release()
	for k := int32(0); k < 10; k++ {
		d.Set(&k, &k)
	}
	seen := 0
	for _, v := range d.All() {
		seen++
		if v.Bits() == 3 {
			break
		}
	}
	assert.Equal(t, 4, seen)
}
