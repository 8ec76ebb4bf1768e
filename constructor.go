package nasc

import (
	"github.com/toutaio/nasc-resolver/registry"
)

// BindConstructor registers a binding using a constructor function.
// The constructor function's parameters are automatically resolved from the container.
//
// Supported constructor signatures:
//   - func() *Service
//   - func() (*Service, error)
//   - func(Logger) *Service
//   - func(Logger, Database) (*Service, error)
//
// Parameters whose type is not registered may receive a declared default:
//
//	container.BindConstructor((*UserService)(nil), NewUserService, nasc.WithDefault(2, 3))
//	// Where: func NewUserService(logger Logger, db Database, retries int) (*UserService, error)
func (n *Nasc) BindConstructor(abstractType any, constructor any, opts ...ConstructorOption) error {
	return n.bindConstructorWithLifetime(abstractType, constructor, LifetimeTransient, false, opts)
}

// SingletonConstructor registers a singleton binding using a constructor function.
//
// Example:
//
//	container.SingletonConstructor((*Database)(nil), NewDatabase)
func (n *Nasc) SingletonConstructor(abstractType any, constructor any, opts ...ConstructorOption) error {
	return n.bindConstructorWithLifetime(abstractType, constructor, LifetimeSingleton, false, opts)
}

// ScopedConstructor registers a scoped binding using a constructor function.
//
// Example:
//
//	container.ScopedConstructor((*UnitOfWork)(nil), NewUnitOfWork)
func (n *Nasc) ScopedConstructor(abstractType any, constructor any, opts ...ConstructorOption) error {
	return n.bindConstructorWithLifetime(abstractType, constructor, LifetimeScoped, false, opts)
}

// AddConstructor appends a transient constructor binding to the
// registrations of the contract.
func (n *Nasc) AddConstructor(abstractType any, constructor any, opts ...ConstructorOption) error {
	return n.bindConstructorWithLifetime(abstractType, constructor, LifetimeTransient, true, opts)
}

// Constructor declares an additional constructor for the type it returns
// without registering a contract. When a type has several constructors the
// one with the most satisfiable parameters is used.
//
// Example:
//
//	container.Constructor(NewServerWithTLS)
//	container.Constructor(NewServer)
//	container.Bind((*Server)(nil), reflect.TypeFor[*HTTPServer]())
func (n *Nasc) Constructor(constructor any, opts ...ConstructorOption) error {
	_, err := n.registry.RegisterConstructor(constructor, opts...)
	return err
}

// bindConstructorWithLifetime is the internal method that handles constructor binding.
func (n *Nasc) bindConstructorWithLifetime(abstractType any, constructor any, lifetime Lifetime, multiple bool, opts []ConstructorOption) error {
	contract, err := contractOf(abstractType)
	if err != nil {
		return err
	}

	parsed, err := registry.ParseConstructor(constructor, opts...)
	if err != nil {
		return err
	}
	entry, err := registry.NewConstructible(contract, parsed.ReturnType(), registry.WithLifetime(lifetime))
	if err != nil {
		return err
	}

	if _, err := n.registry.RegisterConstructor(constructor, opts...); err != nil {
		return err
	}
	return n.store(entry, multiple)
}
