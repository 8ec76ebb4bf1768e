package registry

import "reflect"

// Resolver is the view of the resolution engine that entries, factories and
// synthetic sources use to obtain their own dependencies.
type Resolver interface {
	// Resolve returns an instance for t, or an error wrapping
	// ErrNotRegistered when nothing can satisfy it.
	Resolve(t reflect.Type) (any, error)

	// TryResolve reports ok=false instead of failing when nothing matches t.
	// Construction failures of a matched entry are still returned.
	TryResolve(t reflect.Type) (any, bool, error)

	// IsRegistered reports whether t is registered directly or matched by a
	// synthetic source.
	IsRegistered(t reflect.Type) bool

	// ScopeCache returns the cache used for scoped entries.
	ScopeCache() ScopeCache
}

// EntryResolver is implemented by resolvers that track the entries they
// build. Descriptors use it to build each registration, so a registration
// reached through a slice or a deferred accessor is part of the resolution
// chain.
type EntryResolver interface {
	ResolveEntry(e *Entry) (any, error)
}

func resolveEntry(r Resolver, e *Entry) (any, error) {
	if er, ok := r.(EntryResolver); ok {
		return er.ResolveEntry(e)
	}
	return e.GetService(r)
}

// ScopeCache stores instances of scoped entries for the lifetime of a scope.
type ScopeCache interface {
	GetOrCreate(e *Entry, create func() (any, error)) (any, error)
}

// Service is what the registry stores per contract type: a single Entry or
// an Aggregate of them.
type Service interface {
	Contract() reflect.Type
	Entries() []*Entry
	GetService(r Resolver) (any, error)
}
