// Package registry is an in-memory type registry implementing host.Host.
package registry

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cvet/scriptcore/host"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/utils"
)

var Instantiations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "scriptcore",
	Subsystem: "registry",
	Name:      "instantiations",
}, []string{"template", "result"})

var RegisteredTypes = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "scriptcore",
	Subsystem: "registry",
	Name:      "types",
})

type Options struct {
	DisallowValueAssignForRefType bool
	Collector                     host.Collector
	Logger                        utils.Logger
}

func (o *Options) SetDefaults() {
	if o.Collector == nil {
		o.Collector = host.NopCollector{}
	}
	if o.Logger == nil {
		o.Logger = utils.NopLogger{}
	}
}

type templateDef struct {
	spec TemplateSpec
}

type instance struct {
	t   *Type
	err error
}

type Registry struct {
	id   uuid.UUID
	opts Options
	log  utils.Logger

	seq       atomic.Int32
	byID      *xsync.MapOf[host.TypeID, *Type]
	byName    *xsync.MapOf[string, *Type]
	byGo      *xsync.MapOf[reflect.Type, *Type]
	templates *xsync.MapOf[string, *templateDef]
	instances *xsync.MapOf[string, instance]
	user      *xsync.MapOf[any, any]
}

var _ host.Host = (*Registry)(nil)

// first id handed out to registered types, above every primitive
const firstSeq = 32

func New(opts Options) *Registry {
	opts.SetDefaults()
	r := &Registry{
		id:        uuid.Must(uuid.NewV7()),
		opts:      opts,
		log:       opts.Logger,
		byID:      xsync.NewMapOf[host.TypeID, *Type](),
		byName:    xsync.NewMapOf[string, *Type](),
		byGo:      xsync.NewMapOf[reflect.Type, *Type](),
		templates: xsync.NewMapOf[string, *templateDef](),
		instances: xsync.NewMapOf[string, instance](),
		user:      xsync.NewMapOf[any, any](),
	}
	r.seq.Store(firstSeq)
	r.log.Debug("registry created", "id", r.id.String())
	return r
}

func (r *Registry) ID() uuid.UUID {
	return r.id
}

func (r *Registry) nextID(bits host.TypeID) host.TypeID {
	return host.TypeID(r.seq.Add(1)-1)&host.TypeMaskSeqNbr | bits
}

func (r *Registry) register(spec TypeSpec, bits host.TypeID, flags host.TypeFlags) (host.TypeID, error) {
	if spec.Name == "" || strings.ContainsAny(spec.Name, "<>,@ ") {
		return host.TypeVoid, script_errors.ErrBadDecl
	}
	if _, ok := primitiveByName[spec.Name]; ok {
		return host.TypeVoid, script_errors.ErrTypeExists
	}
	if _, ok := r.templates.Load(spec.Name); ok {
		return host.TypeVoid, script_errors.ErrTypeExists
	}
	t := &Type{
		name:   spec.Name,
		flags:  spec.Flags | flags,
		goType: spec.GoType,
		spec:   spec,
		size:   spec.Size,
		reg:    r,
	}
	if spec.Base != "" {
		base, ok := r.byName.Load(spec.Base)
		if !ok {
			return host.TypeVoid, fmt.Errorf("%w: base %s", script_errors.ErrUnknownType, spec.Base)
		}
		t.base = base
	}
	if t.size == 0 && t.goType != nil {
		t.size = int(t.goType.Size())
	}
	if _, loaded := r.byName.LoadOrStore(spec.Name, t); loaded {
		return host.TypeVoid, script_errors.ErrTypeExists
	}
	t.fillDefaults()
	t.refs.Store(1)
	t.id = r.nextID(bits)
	r.byID.Store(t.id, t)
	if t.goType != nil {
		r.byGo.Store(reflect.PointerTo(t.goType), t)
	}
	RegisteredTypes.Inc()
	r.log.Debug("type registered", "name", t.name, "id", t.id)
	return t.id, nil
}

// RegisterEnum registers a named 32-bit enumeration.
func (r *Registry) RegisterEnum(name string) (host.TypeID, error) {
	return r.register(TypeSpec{Name: name, Size: 4, NoDefault: true}, 0, 0)
}

func (r *Registry) RegisterValueType(spec TypeSpec) (host.TypeID, error) {
	return r.register(spec, host.TypeAppObject, host.FlagValue)
}

func (r *Registry) RegisterRefType(spec TypeSpec) (host.TypeID, error) {
	return r.register(spec, host.TypeAppObject, host.FlagRef)
}

// RegisterScriptClass registers a script declared class. FlagGC marks
// classes that may hold handles, FlagNoInherit marks final ones.
func (r *Registry) RegisterScriptClass(spec TypeSpec) (host.TypeID, error) {
	return r.register(spec, host.TypeScriptObject, host.FlagRef|host.FlagScriptObject)
}

func (r *Registry) RegisterTemplate(spec TemplateSpec) error {
	if spec.Name == "" || spec.SubTypes <= 0 {
		return script_errors.ErrBadDecl
	}
	if _, ok := r.byName.Load(spec.Name); ok {
		return script_errors.ErrTypeExists
	}
	if _, loaded := r.templates.LoadOrStore(spec.Name, &templateDef{spec: spec}); loaded {
		return script_errors.ErrTypeExists
	}
	r.log.Debug("template registered", "name", spec.Name)
	return nil
}

// instantiate resolves a concrete template instance, running the
// template callback the first time the argument tuple is seen.
func (r *Registry) instantiate(def *templateDef, args []host.TypeID) (*Type, error) {
	decls := make([]string, len(args))
	for i, a := range args {
		decls[i] = r.Decl(a)
	}
	name := def.spec.Name + "<" + strings.Join(decls, ",") + ">"
	inst, _ := r.instances.LoadOrCompute(name, func() instance {
		s := def.spec
		t := &Type{
			name:   name,
			flags:  s.Flags | host.FlagTemplate,
			subIDs: args,
			reg:    r,
			spec: TypeSpec{
				Name:    name,
				New:     s.New,
				Copy:    s.Copy,
				Assign:  s.Assign,
				AddRef:  s.AddRef,
				Release: s.Release,
			},
		}
		t.fillDefaults()
		t.refs.Store(1)
		if s.Callback != nil {
			needGC, err := s.Callback(t)
			if err != nil {
				Instantiations.WithLabelValues(s.Name, "rejected").Inc()
				r.log.Warn("template instance rejected", "decl", name, "err", err)
				return instance{err: fmt.Errorf("%w: %s: %w", script_errors.ErrTemplateRejected, name, err)}
			}
			if !needGC {
				t.flags &^= host.FlagGC
			}
		}
		t.id = r.nextID(host.TypeTemplate)
		r.byID.Store(t.id, t)
		if t.flags.Has(host.FlagGC) {
			Instantiations.WithLabelValues(s.Name, "gc").Inc()
		} else {
			Instantiations.WithLabelValues(s.Name, "nogc").Inc()
		}
		r.log.Debug("template instance created", "decl", name, "id", t.id, "gc", t.flags.Has(host.FlagGC))
		return instance{t: t}
	})
	return inst.t, inst.err
}

func (r *Registry) TypeIDByDecl(s string) (host.TypeID, error) {
	d, err := parseDecl(s)
	if err != nil {
		return host.TypeVoid, fmt.Errorf("%w: %q", err, s)
	}
	var id host.TypeID
	var t *Type
	if len(d.args) > 0 {
		def, ok := r.templates.Load(d.name)
		if !ok {
			return host.TypeVoid, fmt.Errorf("%w: %s", script_errors.ErrNotTemplate, d.name)
		}
		if len(d.args) != def.spec.SubTypes {
			return host.TypeVoid, fmt.Errorf("%w: %q", script_errors.ErrBadDecl, s)
		}
		args := make([]host.TypeID, len(d.args))
		for i, a := range d.args {
			if args[i], err = r.TypeIDByDecl(a); err != nil {
				return host.TypeVoid, err
			}
		}
		if t, err = r.instantiate(def, args); err != nil {
			return host.TypeVoid, err
		}
		id = t.id
	} else if p, ok := primitiveByName[d.name]; ok {
		id = p
	} else if t, ok = r.byName.Load(d.name); ok {
		id = t.id
	} else if _, ok := r.templates.Load(d.name); ok {
		return host.TypeVoid, fmt.Errorf("%w: %s needs arguments", script_errors.ErrBadDecl, d.name)
	} else {
		return host.TypeVoid, fmt.Errorf("%w: %s", script_errors.ErrUnknownType, d.name)
	}
	if d.handle {
		if t == nil || !t.flags.Has(host.FlagRef) || !id.IsObject() {
			return host.TypeVoid, fmt.Errorf("%w: %q is not a handle type", script_errors.ErrBadDecl, s)
		}
		id = id.Handle()
		if d.konst {
			id |= host.TypeHandleToConst
		}
	}
	return id, nil
}

// TypeInfoByID is nil for built-in primitives and unknown ids.
func (r *Registry) TypeInfoByID(id host.TypeID) host.TypeInfo {
	if t, ok := r.byID.Load(id.Bare()); ok {
		return t
	}
	return nil
}

// Type is TypeInfoByID with the concrete descriptor.
func (r *Registry) Type(id host.TypeID) (*Type, bool) {
	return r.byID.Load(id.Bare())
}

func (r *Registry) SizeOfPrimitive(id host.TypeID) int {
	if id.IsObject() {
		return 0
	}
	return host.PrimitiveSize(id)
}

func spec(ti host.TypeInfo) *TypeSpec {
	return &ti.(*Type).spec
}

func (r *Registry) CreateObject(ti host.TypeInfo) any {
	s := spec(ti)
	if s.New == nil {
		r.log.Error("type has no default constructor", "type", ti.Name())
		return nil
	}
	return s.New(ti)
}

func (r *Registry) CreateObjectCopy(src any, ti host.TypeInfo) any {
	if src == nil {
		return nil
	}
	obj := spec(ti).Copy(ti, src)
	if obj == nil {
		r.log.Error("type is not copyable", "type", ti.Name())
	}
	return obj
}

func (r *Registry) AssignObject(dst, src any, ti host.TypeInfo) {
	if dst == nil || src == nil {
		return
	}
	if s := spec(ti); s.Assign != nil {
		s.Assign(ti, dst, src)
	}
}

func (r *Registry) AddRefObject(obj any, ti host.TypeInfo) {
	if obj != nil {
		spec(ti).AddRef(obj)
	}
}

func (r *Registry) ReleaseObject(obj any, ti host.TypeInfo) {
	if obj != nil {
		spec(ti).Release(obj)
	}
}

// RefCastObject succeeds when the target is the held type, one of its
// bases, or a base of the object's dynamic type.
func (r *Registry) RefCastObject(obj any, from, to host.TypeInfo) (any, bool) {
	if obj == nil || to == nil {
		return nil, false
	}
	target := to.(*Type)
	ok := false
	if f, isType := from.(*Type); isType && f.isA(target) {
		ok = true
	} else if dyn, found := r.byGo.Load(reflect.TypeOf(obj)); found && dyn.isA(target) {
		ok = true
	} else if target.goType != nil && target.goType.Kind() == reflect.Interface {
		ok = reflect.TypeOf(obj).Implements(target.goType)
	}
	if !ok {
		return nil, false
	}
	target.spec.AddRef(obj)
	return obj, true
}

func (r *Registry) DisallowValueAssignForRefType() bool {
	return r.opts.DisallowValueAssignForRefType
}

func (r *Registry) Collector() host.Collector {
	return r.opts.Collector
}

func (r *Registry) Logger() utils.Logger {
	return r.log
}

func (r *Registry) UserData(key any) any {
	v, _ := r.user.Load(key)
	return v
}

func (r *Registry) SetUserData(key any, v any) any {
	actual, _ := r.user.LoadOrStore(key, v)
	return actual
}
