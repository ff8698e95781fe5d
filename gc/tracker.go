// Package gc is a reference cycle collector for collectable containers.
//
// Containers report themselves on creation. A pass works out which of
// them are held only by each other and severs those cycles through
// ReleaseAllHandles. The tracker never holds a reference of its own.
package gc

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/utils"
)

var Passes = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "gc",
	Name:      "passes",
})

var DestroyedObjects = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "gc",
	Name:      "destroyed",
})

var PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "scriptcore",
	Subsystem: "gc",
	Name:      "pass_duration_ms",
	Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
})

type Tracker struct {
	mu   sync.Mutex
	objs map[host.Collectable]host.TypeInfo
	log  utils.Logger
}

var _ host.Collector = (*Tracker)(nil)

func NewTracker(log utils.Logger) *Tracker {
	if log == nil {
		log = utils.NopLogger{}
	}
	return &Tracker{objs: make(map[host.Collectable]host.TypeInfo), log: log}
}

func (t *Tracker) NotifyNewObject(obj host.Collectable, ti host.TypeInfo) {
	t.mu.Lock()
	t.objs[obj] = ti
	t.mu.Unlock()
}

// Len is the number of tracked objects, including ones already
// destroyed by their owners and not yet pruned.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objs)
}

// Collect runs one full pass and returns the number of objects destroyed.
func (t *Tracker) Collect() int {
	return t.CollectCtx(context.Background())
}

// CollectCtx is Collect logging with the default args carried by ctx.
func (t *Tracker) CollectCtx(ctx context.Context) int {
	start := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	Passes.Inc()

	// counts start at the refcount and lose every reference another
	// tracked object accounts for
	counts := make(map[host.Collectable]int, len(t.objs))
	for obj := range t.objs {
		if obj.GetRefCount() <= 0 {
			delete(t.objs, obj)
			continue
		}
		obj.SetFlag()
		counts[obj] = obj.GetRefCount()
	}
	for obj := range counts {
		obj.EnumReferences(func(ref any) {
			if c, ok := ref.(host.Collectable); ok {
				if _, tracked := counts[c]; tracked {
					counts[c]--
				}
			}
		})
	}

	live := make(map[host.Collectable]bool, len(counts))
	var queue []host.Collectable
	for obj, n := range counts {
		if n > 0 || !obj.GetFlag() {
			live[obj] = true
			queue = append(queue, obj)
		}
	}
	for len(queue) > 0 {
		obj := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		obj.EnumReferences(func(ref any) {
			c, ok := ref.(host.Collectable)
			if !ok || live[c] {
				return
			}
			if _, tracked := counts[c]; tracked {
				live[c] = true
				queue = append(queue, c)
			}
		})
	}

	var garbage []host.Collectable
	for obj := range counts {
		// a cleared flag means the object was touched during the pass
		if !live[obj] && obj.GetFlag() {
			garbage = append(garbage, obj)
		}
	}
	for _, obj := range garbage {
		obj.AddRef()
	}
	for _, obj := range garbage {
		obj.ReleaseAllHandles()
	}
	destroyed := 0
	for _, obj := range garbage {
		obj.Release()
		if obj.GetRefCount() <= 0 {
			destroyed++
			delete(t.objs, obj)
		}
	}
	DestroyedObjects.Add(float64(destroyed))
	PassDuration.Observe(float64(time.Since(start).Milliseconds()))
	if destroyed > 0 {
		t.log.DebugCtx(ctx, "gc pass", "tracked", len(t.objs), "destroyed", destroyed)
	}
	return destroyed
}

// countByType reports live tracked objects per type name.
func (t *Tracker) countByType() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int)
	for obj, ti := range t.objs {
		if obj.GetRefCount() <= 0 {
			continue
		}
		name := "?"
		if ti != nil {
			name = ti.Name()
		}
		out[name]++
	}
	return out
}
