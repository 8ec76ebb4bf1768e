// Package registry provides the lookup table behind the resolver: contract
// types mapped to registration entries, the ordered list of synthetic
// sources, and the constructor selector for constructible entries.
package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Registry maps contract types to entries or aggregates of entries. It is
// built once and read concurrently afterwards; the only mutation after
// build is singleton population inside entries.
type Registry struct {
	mu           sync.RWMutex
	services     map[reflect.Type]Service
	sources      []Source
	constructors map[reflect.Type][]*Constructor

	selector *Selector
	logger   *slog.Logger
	onCreate func(*Entry)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration and selection events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCreateHook registers fn to be called each time a singleton entry
// builds its instance.
func WithCreateHook(fn func(*Entry)) Option {
	return func(r *Registry) {
		r.onCreate = fn
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		services:     make(map[reflect.Type]Service),
		constructors: make(map[reflect.Type][]*Constructor),
		logger:       slog.New(slog.DiscardHandler),
	}
	r.selector = newSelector(r)

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterService stores e under its contract type. An existing registration
// for the same contract is overwritten.
//
// This method is goroutine-safe.
func (r *Registry) RegisterService(e *Entry) error {
	if e == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	r.mu.Lock()
	_, replaced := r.services[e.ContractType]
	r.services[e.ContractType] = e
	r.mu.Unlock()

	e.owner.Store(r)
	r.selector.reset()

	r.logger.Debug("service registered",
		"contract", e.ContractType.String(),
		"kind", e.Kind.String(),
		"lifetime", e.Lifetime.String(),
		"replaced", replaced)
	return nil
}

// AddService appends e to the aggregate of its contract type, creating the
// aggregate if needed. A single entry already registered for the contract
// becomes the first member.
//
// This method is goroutine-safe.
func (r *Registry) AddService(e *Entry) error {
	if e == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	r.mu.Lock()
	var err error
	switch existing := r.services[e.ContractType].(type) {
	case nil:
		var agg *Aggregate
		agg, err = NewAggregate(e)
		if err == nil {
			r.services[e.ContractType] = agg
		}
	case *Aggregate:
		err = existing.Add(e)
	case *Entry:
		var agg *Aggregate
		agg, err = NewAggregate(existing)
		if err == nil {
			err = agg.Add(e)
			r.services[e.ContractType] = agg
		}
	default:
		err = fmt.Errorf("unexpected service %T for %v", existing, e.ContractType)
	}
	r.mu.Unlock()

	if err != nil {
		return err
	}

	e.owner.Store(r)
	r.selector.reset()

	r.logger.Debug("service added",
		"contract", e.ContractType.String(),
		"kind", e.Kind.String(),
		"lifetime", e.Lifetime.String())
	return nil
}

// TryGetValue returns the entry or aggregate registered for t.
//
// This method is goroutine-safe.
func (r *Registry) TryGetValue(t reflect.Type) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[t]
	return svc, ok
}

// Lookup returns the entries registered directly for t, in registration
// order. The result is empty when t is not registered.
func (r *Registry) Lookup(t reflect.Type) []*Entry {
	svc, ok := r.TryGetValue(t)
	if !ok {
		return nil
	}
	return svc.Entries()
}

// IsRegistered reports whether t is registered directly or matched by any
// synthetic source.
//
// This method is goroutine-safe.
func (r *Registry) IsRegistered(t reflect.Type) bool {
	if _, ok := r.TryGetValue(t); ok {
		return true
	}
	return r.MatchSource(t) != nil
}

// RegisterSource appends s to the ordered list of synthetic sources.
//
// This method is goroutine-safe.
func (r *Registry) RegisterSource(s Source) error {
	if s == nil {
		return fmt.Errorf("source cannot be nil")
	}

	r.mu.Lock()
	r.sources = append(r.sources, s)
	r.mu.Unlock()

	r.selector.reset()
	r.logger.Debug("source registered", "source", fmt.Sprintf("%T", s))
	return nil
}

// Sources returns the synthetic sources in registration order.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sources)
}

// MatchSource returns the first source matching t, or nil.
func (r *Registry) MatchSource(t reflect.Type) Source {
	for _, s := range r.Sources() {
		if s.IsMatch(t) {
			return s
		}
	}
	return nil
}

// Descriptors returns the descriptors for t: one per entry when t is
// registered directly, otherwise those of the first matching source. The
// result is empty when nothing can satisfy t.
func (r *Registry) Descriptors(res Resolver, t reflect.Type) ([]Descriptor, error) {
	if svc, ok := r.TryGetValue(t); ok {
		entries := svc.Entries()
		descriptors := make([]Descriptor, len(entries))
		for i, e := range entries {
			descriptors[i] = Descriptor{
				Entry: e,
				Factory: func() (any, error) {
					return resolveEntry(res, e)
				},
			}
		}
		return descriptors, nil
	}

	if s := r.MatchSource(t); s != nil {
		return s.GetServiceDescriptors(res, t)
	}
	return nil, nil
}

// RegisterConstructor declares fn as a constructor of the type it returns.
// Constructible entries of that instance type pick among all declared
// constructors. Declaring the same top-level function twice returns the
// first declaration; closures are always added.
//
// This method is goroutine-safe.
func (r *Registry) RegisterConstructor(fn any, opts ...ConstructorOption) (*Constructor, error) {
	c, err := ParseConstructor(fn, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	for _, existing := range r.constructors[c.returnType] {
		// Binding the same function under several contracts declares it once
		if c.static() && existing.fn.Pointer() == c.fn.Pointer() {
			r.mu.Unlock()
			return existing, nil
		}
	}
	r.constructors[c.returnType] = append(r.constructors[c.returnType], c)
	r.mu.Unlock()

	r.selector.reset()
	r.logger.Debug("constructor registered", "type", c.returnType.String(), "constructor", c.String())
	return c, nil
}

// Constructors returns the constructors declared for instanceType in
// declaration order.
func (r *Registry) Constructors(instanceType reflect.Type) []*Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.constructors[instanceType])
}

// Selector returns the constructor selector bound to this registry.
func (r *Registry) Selector() *Selector {
	return r.selector
}

// Contracts returns all directly registered contract types sorted by name.
func (r *Registry) Contracts() []reflect.Type {
	r.mu.RLock()
	types := make([]reflect.Type, 0, len(r.services))
	for t := range r.services {
		types = append(types, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(types, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return types
}

func (r *Registry) notifyCreated(e *Entry) {
	r.logger.Debug("singleton created", "contract", e.ContractType.String(), "kind", e.Kind.String())
	if r.onCreate != nil {
		r.onCreate(e)
	}
}
