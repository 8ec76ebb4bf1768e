package nasc

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/toutaio/nasc-resolver/internal/logging"
	"github.com/toutaio/nasc-resolver/internal/telemetry"
	"github.com/toutaio/nasc-resolver/registry"
)

// Nasc is the main dependency injection container.
// It owns the registry and the root resolution scope; registrations are
// expected during the build phase and resolutions are thread-safe.
type Nasc struct {
	registry  *registry.Registry
	root      *Scope
	providers []*providerEntry
	mu        sync.Mutex

	logger           *slog.Logger
	tracer           trace.Tracer
	metrics          prometheus.Registerer
	metricsNamespace string
	telemetry        *telemetry.Instrumentation

	disposed atomic.Bool
}

// New creates a new Nasc container instance.
// Options can be provided to configure the container behavior.
//
// The built-in synthetic sources are registered in this order: slices,
// iter.Seq sequences, Lazy, Meta, and func() (T, error) factories.
//
// Example:
//
//	container := nasc.New()
//	// or with options:
//	container := nasc.New(nasc.WithDebug())
func New(options ...Option) *Nasc {
	n := &Nasc{
		providers: make([]*providerEntry, 0),
		logger:    logging.Discard(),
	}

	// Apply options
	for _, opt := range options {
		if err := opt(n); err != nil {
			panic(fmt.Sprintf("failed to apply option: %v", err))
		}
	}

	inst, err := telemetry.New(telemetry.Config{
		Tracer:     n.tracer,
		Registerer: n.metrics,
		Namespace:  n.metricsNamespace,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to set up telemetry: %v", err))
	}
	n.telemetry = inst

	n.registry = registry.New(
		registry.WithLogger(n.logger),
		registry.WithCreateHook(inst.SingletonCreated),
	)
	for _, src := range []registry.Source{
		NewSliceSource(n.registry),
		NewSeqSource(n.registry),
		NewLazySource(n.registry),
		NewMetaSource(n.registry),
		NewFactorySource(n.registry),
	} {
		// Sources are never nil here
		_ = n.registry.RegisterSource(src)
	}

	n.root = newScope(n)
	return n
}

// Registry returns the underlying registry.
func (n *Nasc) Registry() *registry.Registry {
	return n.registry
}

// Root returns the root resolution scope. Scoped registrations resolved
// from it live until the container is disposed.
func (n *Nasc) Root() *Scope {
	return n.root
}

// CreateScope creates a new dependency resolution scope.
// Scoped bindings create one instance per scope. The scope does not keep the
// container alive; resolving after the container is gone or disposed returns
// an ObjectDisposedError.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//	uow, err := nasc.Resolve[UnitOfWork](scope)
func (n *Nasc) CreateScope() *Scope {
	return newScope(n)
}

// Dispose tears the container down. The root scope is disposed and every
// scope created from the container stops resolving. The registry itself is
// left untouched.
func (n *Nasc) Dispose() error {
	if n.disposed.Swap(true) {
		return nil
	}
	n.logger.Debug("container disposed")
	return n.root.Dispose()
}

// Make resolves and returns an instance of the registered type from the
// root scope. The abstractType should be an interface pointer like
// (*Logger)(nil) or a reflect.Type.
//
// Make panics if the type cannot be resolved; use MakeSafe to get an error.
//
// Example:
//
//	logger := container.Make((*Logger)(nil)).(Logger)
func (n *Nasc) Make(abstractType any) any {
	return n.root.Make(abstractType)
}

// MakeSafe resolves an instance from the root scope and returns an error
// instead of panicking.
func (n *Nasc) MakeSafe(abstractType any) (any, error) {
	return n.root.MakeSafe(abstractType)
}

// Bind registers a transient binding between an abstract type and a concrete
// implementation type. The concrete value only conveys its type; instances
// are built by the constructors declared for that type, or allocated with
// new() for pointers to structs without constructors.
//
// Example:
//
//	container.Bind((*Logger)(nil), &ConsoleLogger{})
func (n *Nasc) Bind(abstractType, concreteType any, opts ...EntryOption) error {
	return n.bindType(abstractType, concreteType, LifetimeTransient, false, opts)
}

// Singleton registers a singleton binding.
// The instance is created lazily on first resolution and reused for all subsequent resolutions.
//
// Example:
//
//	container.Singleton((*Database)(nil), &PostgresDB{})
//	db1 := container.Make((*Database)(nil)).(Database)
//	db2 := container.Make((*Database)(nil)).(Database)
//	// db1 == db2 (same instance)
func (n *Nasc) Singleton(abstractType, concreteType any, opts ...EntryOption) error {
	return n.bindType(abstractType, concreteType, LifetimeSingleton, false, opts)
}

// Scoped registers a scoped binding.
// One instance is created per scope.
//
// Example:
//
//	container.Scoped((*UnitOfWork)(nil), &DbUnitOfWork{})
//	scope := container.CreateScope()
//	uow := scope.Make((*UnitOfWork)(nil)).(UnitOfWork)
func (n *Nasc) Scoped(abstractType, concreteType any, opts ...EntryOption) error {
	return n.bindType(abstractType, concreteType, LifetimeScoped, false, opts)
}

// Add appends a constructible registration to the contract instead of
// replacing it. All registrations added for a contract are visible, in
// order, through []T and iter.Seq[T]. The registration is transient unless
// WithLifetime says otherwise.
//
// Example:
//
//	container.Add((*Plugin)(nil), &AuthPlugin{})
//	container.Add((*Plugin)(nil), &CachePlugin{})
//	plugins, _ := nasc.Resolve[[]Plugin](container.Root())
func (n *Nasc) Add(abstractType, concreteType any, opts ...EntryOption) error {
	return n.bindType(abstractType, concreteType, "", true, opts)
}

// Instance registers a fixed value. It always resolves to value itself.
//
// Example:
//
//	container.Instance((*Logger)(nil), logger)
func (n *Nasc) Instance(abstractType, value any, opts ...EntryOption) error {
	return n.bindInstance(abstractType, value, false, opts)
}

// AddInstance appends a fixed value to the registrations of the contract.
func (n *Nasc) AddInstance(abstractType, value any, opts ...EntryOption) error {
	return n.bindInstance(abstractType, value, true, opts)
}

// Factory registers a factory binding.
// The factory function is called on every resolution to create instances,
// unless WithLifetime selects another lifetime.
//
// Example:
//
//	container.Factory((*Connection)(nil), func(r nasc.Resolver) (any, error) {
//	    cfg, err := nasc.Resolve[*Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewConnection(cfg.DSN), nil
//	})
func (n *Nasc) Factory(abstractType any, factory FactoryFunc, opts ...EntryOption) error {
	return n.bindFactory(abstractType, factory, "", false, opts)
}

// SingletonFactory registers a factory that runs at most once.
func (n *Nasc) SingletonFactory(abstractType any, factory FactoryFunc, opts ...EntryOption) error {
	return n.bindFactory(abstractType, factory, LifetimeSingleton, false, opts)
}

// AddFactory appends a factory to the registrations of the contract. It is
// transient unless WithLifetime says otherwise.
func (n *Nasc) AddFactory(abstractType any, factory FactoryFunc, opts ...EntryOption) error {
	return n.bindFactory(abstractType, factory, "", true, opts)
}

// Register stores a prebuilt entry, replacing any registration of its
// contract.
func (n *Nasc) Register(entry *registry.Entry) error {
	return n.registry.RegisterService(entry)
}

// RegisterSource appends a synthetic source after the built-in ones.
func (n *Nasc) RegisterSource(source registry.Source) error {
	return n.registry.RegisterSource(source)
}

func (n *Nasc) bindType(abstractType, concreteType any, lifetime Lifetime, multiple bool, opts []EntryOption) error {
	contract, err := contractOf(abstractType)
	if err != nil {
		return err
	}
	if concreteType == nil {
		return &InvalidBindingError{Reason: "concrete type cannot be nil"}
	}

	instanceType, ok := concreteType.(reflect.Type)
	if !ok {
		instanceType = reflect.TypeOf(concreteType)
	}

	entry, err := registry.NewConstructible(contract, instanceType, withLifetime(opts, lifetime)...)
	if err != nil {
		return err
	}
	return n.store(entry, multiple)
}

func (n *Nasc) bindInstance(abstractType, value any, multiple bool, opts []EntryOption) error {
	contract, err := contractOf(abstractType)
	if err != nil {
		return err
	}
	if value == nil {
		return &InvalidBindingError{Reason: "instance cannot be nil"}
	}

	entry, err := registry.NewInstance(contract, value, opts...)
	if err != nil {
		return err
	}
	return n.store(entry, multiple)
}

func (n *Nasc) bindFactory(abstractType any, factory FactoryFunc, lifetime Lifetime, multiple bool, opts []EntryOption) error {
	contract, err := contractOf(abstractType)
	if err != nil {
		return err
	}
	if factory == nil {
		return &InvalidBindingError{Reason: "factory function cannot be nil"}
	}

	entry, err := registry.NewFactory(contract, factory, withLifetime(opts, lifetime)...)
	if err != nil {
		return err
	}
	return n.store(entry, multiple)
}

func (n *Nasc) store(entry *registry.Entry, multiple bool) error {
	if multiple {
		return n.registry.AddService(entry)
	}
	return n.registry.RegisterService(entry)
}

// withLifetime appends the lifetime so it cannot be overridden by opts. An
// empty lifetime leaves opts as they are.
func withLifetime(opts []EntryOption, lifetime Lifetime) []EntryOption {
	if lifetime == "" {
		return opts
	}
	out := make([]EntryOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, registry.WithLifetime(lifetime))
}
