package dict

import (
	"cmp"
	"math"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/exp/constraints"

	"github.com/cvet/scriptcore/hstrings"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/ids"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/typed"
)

// Comparator is a total order over held values of one type.
type Comparator struct {
	cmp func(a, b typed.Value) int
}

func ComparatorOf(cmp func(a, b typed.Value) int) Comparator {
	return Comparator{cmp: cmp}
}

func (c Comparator) Compare(a, b typed.Value) int {
	return c.cmp(a, b)
}

func (c Comparator) Less(a, b typed.Value) bool {
	return c.cmp(a, b) < 0
}

func (c Comparator) Equals(a, b typed.Value) bool {
	return c.cmp(a, b) == 0
}

func (c Comparator) Valid() bool {
	return c.cmp != nil
}

// compare is a total order: NaN sorts first and equals only NaN.
func compare[T constraints.Ordered](a, b T) int {
	return cmp.Compare(a, b)
}

// scalar orders primitives decoded from their zero-extended bits.
func scalar[T constraints.Ordered](decode func(bits uint64) T) Comparator {
	return Comparator{cmp: func(a, b typed.Value) int {
		return compare(decode(a.Bits()), decode(b.Bits()))
	}}
}

// object orders value objects by a key taken from the instance.
func object[T any, K constraints.Ordered](key func(*T) K) Comparator {
	return Comparator{cmp: func(a, b typed.Value) int {
		return compare(key(a.Object().(*T)), key(b.Object().(*T)))
	}}
}

var primitives = map[host.TypeID]Comparator{
	host.TypeBool:   scalar(func(b uint64) uint8 { return uint8(b) }),
	host.TypeInt8:   scalar(func(b uint64) int8 { return int8(b) }),
	host.TypeInt16:  scalar(func(b uint64) int16 { return int16(b) }),
	host.TypeInt32:  scalar(func(b uint64) int32 { return int32(b) }),
	host.TypeInt64:  scalar(func(b uint64) int64 { return int64(b) }),
	host.TypeUint8:  scalar(func(b uint64) uint8 { return uint8(b) }),
	host.TypeUint16: scalar(func(b uint64) uint16 { return uint16(b) }),
	host.TypeUint32: scalar(func(b uint64) uint32 { return uint32(b) }),
	host.TypeUint64: scalar(func(b uint64) uint64 { return b }),
	host.TypeFloat:  scalar(func(b uint64) float32 { return math.Float32frombits(uint32(b)) }),
	host.TypeDouble: scalar(math.Float64frombits),
}

// enums and unrecognized primitives
var int32Order = primitives[host.TypeInt32]

// handles order by identity, nil first
var identityOrder = Comparator{cmp: func(a, b typed.Value) int {
	return compare(host.Identity(a.Object()), host.Identity(b.Object()))
}}

// Well-known value types with a natural order.
var richTypes = map[string]Comparator{
	"string": {cmp: func(a, b typed.Value) int {
		return strings.Compare(*a.Object().(*string), *b.Object().(*string))
	}},
	"hstring": {cmp: func(a, b typed.Value) int {
		return hstrings.Compare(*a.Object().(*hstrings.HString), *b.Object().(*hstrings.HString))
	}},
	"ident": object(func(id *ids.Ident) int64 { return id.Underlying() }),
	"tick":  object(func(t *ids.Tick) uint32 { return t.Underlying() }),
}

// ComparatorTable resolves a type id to its comparator. One table
// exists per host; resolution happens when a dict is created, never
// per comparison.
type ComparatorTable struct {
	h    host.Host
	rich *xsync.MapOf[host.TypeID, Comparator]
}

type tableKey struct{}

// Comparators returns the table of h, creating it on first use.
func Comparators(h host.Host) *ComparatorTable {
	if t, ok := h.UserData(tableKey{}).(*ComparatorTable); ok {
		return t
	}
	t := &ComparatorTable{h: h, rich: xsync.NewMapOf[host.TypeID, Comparator]()}
	for name, c := range richTypes {
		if id, err := h.TypeIDByDecl(name); err == nil {
			t.rich.Store(id, c)
		}
	}
	return h.SetUserData(tableKey{}, t).(*ComparatorTable)
}

// Register binds a comparator to a type, typically a value type.
func (t *ComparatorTable) Register(id host.TypeID, c Comparator) {
	t.rich.Store(id, c)
}

func (t *ComparatorTable) Resolve(id host.TypeID) (Comparator, error) {
	if c, ok := t.rich.Load(id); ok {
		return c, nil
	}
	switch {
	case !id.IsObject():
		if c, ok := primitives[id]; ok {
			return c, nil
		}
		return int32Order, nil
	case id.IsHandle():
		return identityOrder, nil
	}
	return Comparator{}, script_errors.ErrUnsupportedComparator
}
