package registry

import (
	"fmt"
	"maps"
	"reflect"
	"sync/atomic"
)

// FactoryFunc creates an instance for a factory entry. It receives the
// resolver so it can pull its own dependencies.
type FactoryFunc func(r Resolver) (any, error)

// Metadata is the pre-computed key/value description attached to an entry at
// build time. The engine only reads it.
type Metadata map[string]any

// Entry is one concrete way to satisfy a contract type: a fixed instance, a
// factory function, or a constructible instance type.
type Entry struct {
	// ContractType is the type the entry satisfies.
	ContractType reflect.Type

	// Kind tells which of instance, factory or instance type is set.
	Kind Kind

	// Lifetime defines how instances are cached.
	Lifetime Lifetime

	// InstanceType is the concrete type built for constructible entries.
	InstanceType reflect.Type

	// Metadata is exposed to deferred accessors without constructing the
	// instance.
	Metadata Metadata

	instance any
	factory  FactoryFunc
	owner    atomic.Pointer[Registry]
	cache    singleton
}

// Spec describes an entry to build with NewEntry. Exactly one of Instance,
// Factory and InstanceType must be set.
type Spec struct {
	Contract     reflect.Type
	Instance     any
	Factory      FactoryFunc
	InstanceType reflect.Type
	Lifetime     Lifetime
	Metadata     Metadata
}

// EntryOption adjusts a Spec before the entry is built.
type EntryOption func(*Spec)

// WithLifetime sets the lifetime of the entry. The default is
// LifetimeTransient; instance entries are always singletons.
func WithLifetime(l Lifetime) EntryOption {
	return func(s *Spec) {
		s.Lifetime = l
	}
}

// WithMetadata attaches a single metadata key to the entry.
func WithMetadata(key string, value any) EntryOption {
	return func(s *Spec) {
		if s.Metadata == nil {
			s.Metadata = make(Metadata)
		}
		s.Metadata[key] = value
	}
}

// WithMetadataMap merges m into the entry metadata.
func WithMetadataMap(m map[string]any) EntryOption {
	return func(s *Spec) {
		if s.Metadata == nil {
			s.Metadata = make(Metadata, len(m))
		}
		maps.Copy(s.Metadata, m)
	}
}

// NewEntry validates spec and builds the entry.
func NewEntry(spec Spec) (*Entry, error) {
	if spec.Contract == nil {
		return nil, &InvalidEntryError{Reason: "contract type cannot be nil"}
	}

	set := 0
	if spec.Instance != nil {
		set++
	}
	if spec.Factory != nil {
		set++
	}
	if spec.InstanceType != nil {
		set++
	}
	if set != 1 {
		return nil, &InvalidEntryError{
			Reason: fmt.Sprintf("exactly one of instance, factory or instance type must be set for %v, got %d", spec.Contract, set),
		}
	}

	lifetime := spec.Lifetime
	switch lifetime {
	case "":
		lifetime = LifetimeTransient
	case LifetimeTransient, LifetimeSingleton, LifetimeScoped:
	default:
		return nil, &InvalidEntryError{Reason: fmt.Sprintf("unknown lifetime %q for %v", lifetime, spec.Contract)}
	}

	e := &Entry{
		ContractType: spec.Contract,
		Lifetime:     lifetime,
		Metadata:     spec.Metadata,
	}
	if e.Metadata == nil {
		e.Metadata = Metadata{}
	}

	switch {
	case spec.Instance != nil:
		instanceType := reflect.TypeOf(spec.Instance)
		if !instanceType.AssignableTo(spec.Contract) {
			return nil, &InvalidEntryError{
				Reason: fmt.Sprintf("instance of type %v does not satisfy %v", instanceType, spec.Contract),
			}
		}
		e.Kind = KindInstance
		e.Lifetime = LifetimeSingleton
		e.InstanceType = instanceType
		e.instance = spec.Instance
	case spec.Factory != nil:
		e.Kind = KindFactory
		e.factory = spec.Factory
	default:
		if !spec.InstanceType.AssignableTo(spec.Contract) {
			return nil, &InvalidEntryError{
				Reason: fmt.Sprintf("instance type %v does not satisfy %v", spec.InstanceType, spec.Contract),
			}
		}
		e.Kind = KindConstructible
		e.InstanceType = spec.InstanceType
	}

	return e, nil
}

// NewInstance builds an entry that always returns value.
func NewInstance(contract reflect.Type, value any, opts ...EntryOption) (*Entry, error) {
	if value == nil {
		return nil, &InvalidEntryError{Reason: "instance cannot be nil"}
	}
	return NewEntry(buildSpec(Spec{Contract: contract, Instance: value}, opts))
}

// NewFactory builds an entry that produces its instance with fn.
func NewFactory(contract reflect.Type, fn FactoryFunc, opts ...EntryOption) (*Entry, error) {
	if fn == nil {
		return nil, &InvalidEntryError{Reason: "factory function cannot be nil"}
	}
	return NewEntry(buildSpec(Spec{Contract: contract, Factory: fn}, opts))
}

// NewConstructible builds an entry whose instance is created by invoking a
// constructor of instanceType.
func NewConstructible(contract, instanceType reflect.Type, opts ...EntryOption) (*Entry, error) {
	if instanceType == nil {
		return nil, &InvalidEntryError{Reason: "instance type cannot be nil"}
	}
	return NewEntry(buildSpec(Spec{Contract: contract, InstanceType: instanceType}, opts))
}

func buildSpec(spec Spec, opts []EntryOption) Spec {
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// Contract returns the contract type of the entry.
func (e *Entry) Contract() reflect.Type {
	return e.ContractType
}

// Entries returns the entry itself as a one-element slice.
func (e *Entry) Entries() []*Entry {
	return []*Entry{e}
}

// GetService produces the instance according to the entry kind and lifetime.
// Singleton entries build their instance at most once, even under
// concurrent first resolution.
func (e *Entry) GetService(r Resolver) (any, error) {
	if e.Kind == KindInstance {
		return e.instance, nil
	}

	switch e.Lifetime {
	case LifetimeSingleton:
		value, created, err := e.cache.getOrCreate(func() (any, error) {
			return e.create(r)
		})
		if created {
			if owner := e.owner.Load(); owner != nil {
				owner.notifyCreated(e)
			}
		}
		return value, err

	case LifetimeScoped:
		cache := r.ScopeCache()
		if cache == nil {
			return nil, fmt.Errorf("scoped entry for %v resolved outside of a scope", e.ContractType)
		}
		return cache.GetOrCreate(e, func() (any, error) {
			return e.create(r)
		})

	default:
		return e.create(r)
	}
}

// Cached returns the singleton instance if it has already been created.
func (e *Entry) Cached() (any, bool) {
	if e.Kind == KindInstance {
		return e.instance, true
	}
	return e.cache.peek()
}

func (e *Entry) create(r Resolver) (any, error) {
	switch e.Kind {
	case KindFactory:
		return e.factory(r)
	case KindConstructible:
		owner := e.owner.Load()
		if owner == nil {
			return nil, fmt.Errorf("constructible entry for %v is not attached to a registry", e.ContractType)
		}
		return owner.selector.Construct(r, e.InstanceType)
	default:
		return nil, fmt.Errorf("unexpected entry kind %v for %v", e.Kind, e.ContractType)
	}
}

func (e *Entry) String() string {
	if e.InstanceType != nil {
		return fmt.Sprintf("%v(%s %s %v)", e.ContractType, e.Lifetime, e.Kind, e.InstanceType)
	}
	return fmt.Sprintf("%v(%s %s)", e.ContractType, e.Lifetime, e.Kind)
}
