package nasc

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"

	"github.com/toutaio/nasc-resolver/internal/telemetry"
	"github.com/toutaio/nasc-resolver/registry"
)

// Disposable represents a service that requires cleanup.
// Scoped services implementing this interface will have Dispose called
// when their scope is disposed.
//
// Example:
//
//	type DatabaseConnection struct {}
//	func (d *DatabaseConnection) Dispose() error {
//	    return d.connection.Close()
//	}
type Disposable interface {
	Dispose() error
}

// Initializable represents a service that requires initialization.
// Scoped services implementing this interface will have Initialize called
// once, right after being created.
type Initializable interface {
	Initialize() error
}

// Scope is the resolution engine for one container scope. It looks a
// contract up in the registry, falls back to the synthetic sources in
// registration order, and caches scoped instances.
//
// A scope holds the registry but only a weak reference to its container, so
// it never keeps a torn-down container alive.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//
//	// Scoped instances are unique to this scope
//	uow := scope.Make((*UnitOfWork)(nil)).(UnitOfWork)
type Scope struct {
	id        string
	container weak.Pointer[Nasc]
	registry  *registry.Registry
	telemetry *telemetry.Instrumentation
	logger    *slog.Logger
	parent    *Scope

	mu            sync.Mutex
	slots         map[*registry.Entry]*scopedSlot
	creationOrder []any // Track order for reverse disposal
	children      []*Scope
	disposed      atomic.Bool
}

// scopedSlot holds the instance of one scoped entry.
type scopedSlot struct {
	mu    sync.Mutex
	done  bool
	value any
}

// newScope creates a new scope for the given container.
func newScope(n *Nasc) *Scope {
	id := uuid.NewString()
	return &Scope{
		id:        id,
		container: weak.Make(n),
		registry:  n.registry,
		telemetry: n.telemetry,
		logger:    n.logger.With("scope", id),
		slots:     make(map[*registry.Entry]*scopedSlot),
	}
}

// ID returns the unique identifier of the scope.
func (s *Scope) ID() string {
	return s.id
}

// Resolve returns an instance for t. It fails with an error wrapping
// ErrNotRegistered when neither an entry nor a source matches t, and with the
// construction error when a match cannot be built.
func (s *Scope) Resolve(t reflect.Type) (any, error) {
	value, found, err := s.TryResolve(t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &ResolutionError{Type: t, Cause: ErrNotRegistered}
	}
	return value, nil
}

// TryResolve returns found=false when nothing matches t. Errors raised while
// building a matched entry are still returned.
func (s *Scope) TryResolve(t reflect.Type) (any, bool, error) {
	done := s.telemetry.StartResolve(t, s.id)
	value, found, err := s.frame().TryResolve(t)
	done(found, err)

	if err != nil {
		s.logger.Debug("resolution failed", "contract", typeString(t), "error", err)
	} else if !found {
		s.logger.Debug("contract not registered", "contract", typeString(t))
	}
	return value, found, err
}

// IsRegistered reports whether t is registered or matched by a source.
func (s *Scope) IsRegistered(t reflect.Type) bool {
	return s.registry.IsRegistered(t)
}

// ScopeCache returns the scope itself, which caches scoped instances.
func (s *Scope) ScopeCache() registry.ScopeCache {
	return s
}

// GetOrCreate returns the instance of a scoped entry, building it on first
// use within this scope.
func (s *Scope) GetOrCreate(e *registry.Entry, create func() (any, error)) (any, error) {
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		return nil, &ObjectDisposedError{Object: "scope " + s.id}
	}
	slot, ok := s.slots[e]
	if !ok {
		slot = &scopedSlot{}
		s.slots[e] = slot
	}
	s.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.done {
		return slot.value, nil
	}

	instance, err := create()
	if err != nil {
		return nil, err
	}

	// Initialize if implements Initializable
	if initializable, ok := instance.(Initializable); ok {
		if err := initializable.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize instance of type %v: %w", e.ContractType, err)
		}
	}

	slot.value = instance
	slot.done = true

	s.mu.Lock()
	s.creationOrder = append(s.creationOrder, instance)
	s.mu.Unlock()

	return instance, nil
}

// Make resolves an instance within this scope. The abstractType should be an
// interface pointer like (*Logger)(nil) or a reflect.Type. It panics when the
// type cannot be resolved.
//
// Example:
//
//	service := scope.Make((*Service)(nil)).(Service)
func (s *Scope) Make(abstractType any) any {
	instance, err := s.MakeSafe(abstractType)
	if err != nil {
		panic(err.Error())
	}
	return instance
}

// MakeSafe is Make returning an error instead of panicking.
func (s *Scope) MakeSafe(abstractType any) (any, error) {
	contract, err := contractOf(abstractType)
	if err != nil {
		return nil, err
	}
	return s.Resolve(contract)
}

// CreateChildScope creates a child scope sharing the same container.
// Child scopes are automatically disposed when the parent is disposed.
//
// Example:
//
//	parentScope := container.CreateScope()
//	defer parentScope.Dispose()
//
//	childScope, err := parentScope.CreateChildScope()
//	// Child will be disposed with parent
func (s *Scope) CreateChildScope() (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed.Load() {
		return nil, &ObjectDisposedError{Object: "scope " + s.id}
	}
	n := s.container.Value()
	if n == nil || n.disposed.Load() {
		return nil, &ObjectDisposedError{Object: "container"}
	}

	child := newScope(n)
	child.parent = s
	s.children = append(s.children, child)
	return child, nil
}

// Dispose releases resources held by this scope and detaches it from its
// parent. Child scopes are disposed first, then scoped instances implementing
// Disposable in reverse creation order. The registry is never modified,
// so other scopes keep working.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
func (s *Scope) Dispose() error {
	s.mu.Lock()
	if s.disposed.Swap(true) {
		s.mu.Unlock()
		return nil // Already disposed
	}
	children := s.children
	created := s.creationOrder
	s.children = nil
	s.creationOrder = nil
	s.slots = make(map[*registry.Entry]*scopedSlot)
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	var errs []error

	// First, dispose all child scopes
	for _, child := range children {
		if err := child.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("child scope disposal error: %w", err))
		}
	}

	// Dispose instances in reverse creation order
	for i := len(created) - 1; i >= 0; i-- {
		instance := created[i]
		if disposable, ok := instance.(Disposable); ok {
			if err := disposable.Dispose(); err != nil {
				errs = append(errs, fmt.Errorf("disposal error for %T: %w", instance, err))
			}
		}
	}

	s.logger.Debug("scope disposed", "instances", len(created), "children", len(children))
	return errors.Join(errs...)
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = slices.DeleteFunc(s.children, func(c *Scope) bool { return c == child })
}

func (s *Scope) checkAlive() error {
	if s.disposed.Load() {
		return &ObjectDisposedError{Object: "scope " + s.id}
	}
	n := s.container.Value()
	if n == nil || n.disposed.Load() {
		return &ObjectDisposedError{Object: "container"}
	}
	return nil
}

func (s *Scope) frame() *frame {
	return &frame{scope: s}
}

// link is one contract on a resolution chain. It stays active while that
// contract is being built.
type link struct {
	contract reflect.Type
	parent   *link
	active   atomic.Bool
}

// frame is the resolver handed down one resolution chain. It remembers the
// contracts being built above it to report cycles instead of recursing or
// blocking on a singleton guard forever. Deferred accessors keep the frame
// they were resolved with, so reading one while its own contract is still
// under construction is reported as a cycle too.
type frame struct {
	scope *Scope
	chain *link
}

func (f *frame) Resolve(t reflect.Type) (any, error) {
	value, found, err := f.TryResolve(t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &ResolutionError{Type: t, Cause: ErrNotRegistered}
	}
	return value, nil
}

func (f *frame) TryResolve(t reflect.Type) (any, bool, error) {
	if t == nil {
		return nil, false, errors.New("cannot resolve nil type")
	}
	if err := f.scope.checkAlive(); err != nil {
		return nil, false, err
	}
	if path := f.cycle(t); path != nil {
		return nil, true, &CircularDependencyError{Path: path}
	}

	next, done := f.push(t)
	defer done()

	if svc, ok := f.scope.registry.TryGetValue(t); ok {
		value, err := svc.GetService(next)
		if err != nil {
			return nil, true, &ResolutionError{Type: t, Cause: err}
		}
		return value, true, nil
	}

	if src := f.scope.registry.MatchSource(t); src != nil {
		value, err := src.GetService(next, t)
		if err != nil {
			return nil, true, &ResolutionError{Type: t, Cause: err}
		}
		return value, true, nil
	}

	return nil, false, nil
}

// ResolveEntry builds one registration of a contract, as the elements of a
// slice or a deferred accessor do, checking its contract against the chain.
func (f *frame) ResolveEntry(e *registry.Entry) (any, error) {
	if err := f.scope.checkAlive(); err != nil {
		return nil, err
	}
	if path := f.cycle(e.ContractType); path != nil {
		return nil, &CircularDependencyError{Path: path}
	}

	next, done := f.push(e.ContractType)
	defer done()
	return e.GetService(next)
}

func (f *frame) IsRegistered(t reflect.Type) bool {
	return f.scope.registry.IsRegistered(t)
}

func (f *frame) ScopeCache() registry.ScopeCache {
	return f.scope
}

func (f *frame) alive() error {
	return f.scope.checkAlive()
}

// push returns the frame for building t below f and the func ending it.
func (f *frame) push(t reflect.Type) (*frame, func()) {
	l := &link{contract: t, parent: f.chain}
	l.active.Store(true)
	return &frame{scope: f.scope, chain: l}, func() { l.active.Store(false) }
}

// cycle returns the active chain followed by t when t is already being
// built on it, or nil.
func (f *frame) cycle(t reflect.Type) []reflect.Type {
	var path []reflect.Type
	found := false
	for l := f.chain; l != nil; l = l.parent {
		if !l.active.Load() {
			continue
		}
		path = append(path, l.contract)
		if l.contract == t {
			found = true
		}
	}
	if !found {
		return nil
	}
	slices.Reverse(path)
	return append(path, t)
}

// alive reports an ObjectDisposedError when the scope behind r is gone.
func alive(r registry.Resolver) error {
	if a, ok := r.(interface{ alive() error }); ok {
		return a.alive()
	}
	return nil
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
