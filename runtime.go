// Package scriptcore wires the value containers of a scripting runtime:
// the type registry, the any box, the dict template, the cycle
// collector and the hashed string pool.
package scriptcore

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cvet/scriptcore/anybox"
	"github.com/cvet/scriptcore/dict"
	"github.com/cvet/scriptcore/gc"
	"github.com/cvet/scriptcore/hstrings"
	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/registry"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/utils"
)

type Runtime struct {
	opts    Options
	log     utils.Logger
	ctx     context.Context
	reg     *registry.Registry
	tracker *gc.Tracker
	pool    *hstrings.Pool
	pebble  *hstrings.PebbleStore
	closed  atomic.Bool
}

func Open(opts Options) (*Runtime, error) {
	opts.SetDefaults()
	rt := &Runtime{opts: opts, log: opts.Logger}
	rt.tracker = gc.NewTracker(rt.log)
	rt.reg = registry.New(registry.Options{
		DisallowValueAssignForRefType: opts.DisallowValueAssignForRefType,
		Collector:                     rt.tracker,
		Logger:                        rt.log,
	})
	if err := rt.reg.RegisterStandardTypes(); err != nil {
		return nil, err
	}
	if _, err := anybox.RegisterType(rt.reg); err != nil {
		return nil, err
	}
	if err := dict.RegisterTemplate(rt.reg); err != nil {
		return nil, err
	}

	var store hstrings.Store
	if opts.HashStorePath != "" {
		ps, err := hstrings.OpenPebbleStore(opts.HashStorePath)
		if err != nil {
			return nil, err
		}
		rt.pebble = ps
		store = ps
	} else {
		store = hstrings.NewMemoryStore()
	}
	rt.pool = hstrings.NewPool(store, opts.HashCacheSize, rt.log)
	rt.ctx = utils.WithDefaultArgs(context.Background(), "registry", rt.reg.ID().String())
	rt.log.InfoCtx(rt.ctx, "runtime open", "hash_store", opts.HashStorePath)
	return rt, nil
}

func (rt *Runtime) Registry() *registry.Registry {
	return rt.reg
}

func (rt *Runtime) Host() host.Host {
	return rt.reg
}

func (rt *Runtime) Tracker() *gc.Tracker {
	return rt.tracker
}

func (rt *Runtime) Pool() *hstrings.Pool {
	return rt.pool
}

func (rt *Runtime) Logger() utils.Logger {
	return rt.log
}

func (rt *Runtime) NewAny() *anybox.Box {
	return anybox.New(rt.reg)
}

func (rt *Runtime) NewAnyWith(ref any, id host.TypeID) *anybox.Box {
	return anybox.NewWith(rt.reg, ref, id)
}

func (rt *Runtime) dictType(decl string) (host.TypeInfo, error) {
	id, err := rt.reg.TypeIDByDecl(decl)
	if err != nil {
		return nil, err
	}
	ti := rt.reg.TypeInfoByID(id)
	if ti == nil || id.IsHandle() || !strings.HasPrefix(ti.Name(), dict.TemplateName+"<") {
		return nil, errors.Wrapf(script_errors.ErrInvalidArg, "%s is not a dict", decl)
	}
	return ti, nil
}

// NewDict creates an empty dict of a declaration like "dict<string,int>".
func (rt *Runtime) NewDict(decl string) (*dict.Dict, error) {
	ti, err := rt.dictType(decl)
	if err != nil {
		return nil, err
	}
	return dict.New(ti)
}

func (rt *Runtime) NewDictFromList(decl string, list ...any) (*dict.Dict, error) {
	ti, err := rt.dictType(decl)
	if err != nil {
		return nil, err
	}
	return dict.NewFromList(ti, list)
}

func (rt *Runtime) MakeHString(s string) (hstrings.HString, error) {
	return rt.pool.Make(s)
}

func (rt *Runtime) ResolveHString(hash uint64) (hstrings.HString, error) {
	return rt.pool.Resolve(hash)
}

// Context carries the runtime's logging args.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Collect runs a cycle collection pass.
func (rt *Runtime) Collect() int {
	return rt.tracker.CollectCtx(rt.ctx)
}

// RegisterMetrics registers every runtime metric. Metrics another
// runtime already registered on reg are skipped.
func (rt *Runtime) RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		anybox.Created, anybox.Destroyed,
		dict.Created, dict.Destroyed,
		registry.Instantiations, registry.RegisteredTypes,
		gc.Passes, gc.DestroyedObjects, gc.PassDuration,
		gc.NewContainerCollector(rt.tracker),
	}
	if rt.pebble != nil {
		collectors = append(collectors, hstrings.NewPebbleCollector(rt.pebble))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func (rt *Runtime) Close() error {
	if !rt.closed.CompareAndSwap(false, true) {
		return script_errors.ErrClosed
	}
	rt.tracker.CollectCtx(rt.ctx)
	rt.log.InfoCtx(rt.ctx, "runtime closed", "tracked", rt.tracker.Len())
	return rt.pool.Close()
}
