// Package counters provides RefCount - the atomic reference counter and
// provisional-garbage flag shared by every collectable container.
//
// # RefCount Architecture
//
// A container is owned by whoever holds a reference to it: script variables,
// other containers, the host. The count starts at 1 for the creator. The
// container is destroyed the moment the count drops to zero, and must not be
// touched afterwards.
//
// Pure reference counting leaks cycles (a box holding a handle to itself, two
// dicts holding each other). An external tracing collector breaks them. It
// marks every tracked object with the provisional-garbage flag, subtracts the
// references objects report about each other, and severs whatever is only
// kept alive by the cycle.
//
// ## Flag Semantics
//
// Any AddRef or Release clears the flag: an object that was just referenced
// or dereferenced by live code cannot be provisionally garbage. The collector
// re-checks the flag before severing, so a mutation racing the mark phase
// keeps the object alive.
//
// ## Thread Safety
//
// Count and flag use atomic read-modify-write, so script execution and a
// concurrent mark phase may interleave. Nothing else in a container is
// synchronized.
package counters

import (
	"sync/atomic"
)

type RefCount struct {
	count atomic.Int32
	flag  atomic.Bool
}

// Init sets the count to 1 and clears the flag.
func (r *RefCount) Init() {
	r.flag.Store(false)
	r.count.Store(1)
}

func (r *RefCount) AddRef() int32 {
	r.flag.Store(false)
	return r.count.Add(1)
}

// Release returns true when the count reached zero: the caller destroys.
func (r *RefCount) Release() bool {
	r.flag.Store(false)
	return r.count.Add(-1) == 0
}

func (r *RefCount) Count() int {
	return int(r.count.Load())
}

func (r *RefCount) SetFlag() {
	r.flag.Store(true)
}

func (r *RefCount) Flag() bool {
	return r.flag.Load()
}
