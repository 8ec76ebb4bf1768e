// Package nasc provides a reflection-based dependency injection container for Go.
//
// Nasc (Old Irish: "Link" or "Bond") resolves a requested contract type to an
// instance, honouring singleton, transient and scoped lifetimes, building
// constructor dependencies recursively and synthesizing slices, sequences,
// deferred accessors and factories of registered types on demand.
//
// Basic usage:
//
//	// Create container
//	container := nasc.New()
//
//	// Bind interface to implementation
//	container.Bind((*Logger)(nil), &ConsoleLogger{})
//
//	// Resolve instance
//	logger, err := nasc.Resolve[Logger](container.Root())
//
// # Registrations
//
// A contract is a reflect.Type. It can be named with TypeOf[T](), with a
// typed nil pointer to an interface such as (*Logger)(nil), or with a sample
// value of a concrete type.
//
// A registration satisfies a contract in one of three ways:
//
//	container.Instance(nasc.TypeOf[Config](), cfg)            // fixed value
//	container.Factory(nasc.TypeOf[Conn](), openConn)          // factory func
//	container.Bind(nasc.TypeOf[Logger](), &ConsoleLogger{})   // constructible type
//
// Bind, Singleton and Scoped replace the registration of a contract. Add,
// AddInstance and AddFactory append to it instead; a contract with several
// registrations resolves through []T and iter.Seq[T], and resolving it
// directly is an AmbiguousMatchError.
//
// # Constructors
//
// A constructible type is built by one of the constructors declared for it:
//
//	container.BindConstructor(nasc.TypeOf[Service](), NewService)
//	container.BindConstructor(nasc.TypeOf[Service](), NewServiceWithRetries,
//	    nasc.WithDefault(1, 3))
//
// The constructor with the most parameters that can all be satisfied wins.
// A parameter is satisfied when its type is registered, when a synthetic
// source can produce it, or when it has a declared default. Two winners with
// the same parameter count are an AmbiguousConstructorError. A pointer to a
// struct without declared constructors is allocated with new.
//
// # Synthetic Types
//
// Some types are produced from the registrations of their element type
// without being registered themselves:
//
//	[]T                  every registration of T, in order
//	iter.Seq[T]          the same as a sequence
//	nasc.Lazy[T]         T built on first Value call
//	nasc.Meta[T, M]      a Lazy T plus the registration metadata as M
//	func() (T, error)    a factory going through the registration of T
//
// Lazy, Meta and factories require exactly one registration of T and fail
// with NoImplementationForContractError when there is none.
//
// # Lifetimes
//
//	container.Bind(...)      // transient: new instance on each resolution
//	container.Singleton(...) // singleton: built once, on first resolution
//	container.Scoped(...)    // scoped: built once per scope
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//	uow, err := nasc.Resolve[UnitOfWork](scope)
//
// Disposing a scope disposes its scoped instances implementing Disposable,
// in reverse creation order. Resolving from a disposed scope or container is
// an ObjectDisposedError.
//
// # Service Providers
//
//	type DatabaseProvider struct{}
//
//	func (p *DatabaseProvider) Register(c *nasc.Nasc) error {
//	    return c.Singleton(nasc.TypeOf[Database](), &PostgresDB{})
//	}
//
//	container.RegisterProvider(&DatabaseProvider{})
//	container.BootProviders()
//
// # Observability
//
// WithLogger, WithDebug, WithTracer and WithMetrics wire a slog logger, an
// OpenTelemetry tracer and a Prometheus registerer. WithConfig sets all of
// them from a config.Config loaded from the environment.
package nasc
