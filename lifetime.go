package nasc

import "github.com/toutaio/nasc-resolver/registry"

// Lifetime represents the caching policy of a registration.
type Lifetime = registry.Lifetime

const (
	// LifetimeTransient creates a new instance on every resolution.
	// This is the default lifetime for Bind() operations.
	LifetimeTransient = registry.LifetimeTransient

	// LifetimeSingleton creates a single instance that is reused for all resolutions.
	// The instance is created lazily on first resolution; concurrent first
	// resolutions build it only once.
	LifetimeSingleton = registry.LifetimeSingleton

	// LifetimeScoped creates one instance per scope.
	// Each scope maintains its own instance cache, isolated from other scopes.
	LifetimeScoped = registry.LifetimeScoped
)

// FactoryFunc is a function that creates instances dynamically.
// It receives the resolver to pull dependencies and returns the created instance or an error.
//
// Example:
//
//	factory := func(r nasc.Resolver) (any, error) {
//	    cfg, err := nasc.Resolve[*Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewConnection(cfg.DSN), nil
//	}
//	container.Factory((*Connection)(nil), factory)
type FactoryFunc = registry.FactoryFunc

// Resolver is the resolution view handed to factories, constructors and sources.
type Resolver = registry.Resolver

// EntryOption adjusts a registration (lifetime, metadata).
type EntryOption = registry.EntryOption

// ConstructorOption adjusts a constructor (declared defaults).
type ConstructorOption = registry.ConstructorOption

// Metadata is the key/value description attached to a registration.
type Metadata = registry.Metadata

// WithMetadata attaches a metadata key to a registration.
func WithMetadata(key string, value any) EntryOption {
	return registry.WithMetadata(key, value)
}

// WithLifetime overrides the lifetime of a registration.
func WithLifetime(l Lifetime) EntryOption {
	return registry.WithLifetime(l)
}

// WithDefault declares the value used for constructor parameter index when
// its type is not registered.
func WithDefault(index int, value any) ConstructorOption {
	return registry.WithDefault(index, value)
}
