package nasc

import (
	"errors"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type UnitOfWork interface {
	Commit() error
}

type trackedUnit struct {
	id          int
	initialized bool
	log         *[]int
	failDispose bool
}

func (u *trackedUnit) Commit() error { return nil }

func (u *trackedUnit) Initialize() error {
	u.initialized = true
	return nil
}

func (u *trackedUnit) Dispose() error {
	if u.log != nil {
		*u.log = append(*u.log, u.id)
	}
	if u.failDispose {
		return errors.New("dispose failed")
	}
	return nil
}

func trackedFactory(log *[]int, next *int) FactoryFunc {
	return func(Resolver) (any, error) {
		*next++
		return &trackedUnit{id: *next, log: log}, nil
	}
}

func TestScoped_OneInstancePerScope(t *testing.T) {
	container := New()
	require.NoError(t, container.Scoped((*UnitOfWork)(nil), &trackedUnit{}))

	scope1 := container.CreateScope()
	scope2 := container.CreateScope()
	t.Cleanup(func() {
		_ = scope1.Dispose()
		_ = scope2.Dispose()
	})

	a := MustResolve[UnitOfWork](scope1)
	b := MustResolve[UnitOfWork](scope1)
	c := MustResolve[UnitOfWork](scope2)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.NotEqual(t, scope1.ID(), scope2.ID())
}

func TestScoped_RootActsAsScope(t *testing.T) {
	container := New()
	require.NoError(t, container.Scoped((*UnitOfWork)(nil), &trackedUnit{}))

	assert.Same(t, MustResolve[UnitOfWork](container.Root()), MustResolve[UnitOfWork](container.Root()))
}

func TestScoped_InitializeCalledOnce(t *testing.T) {
	container := New()
	var log []int
	next := 0
	require.NoError(t, container.AddFactory((*UnitOfWork)(nil), trackedFactory(&log, &next), WithLifetime(LifetimeScoped)))

	scope := container.CreateScope()
	uow := MustResolve[UnitOfWork](scope).(*trackedUnit)
	assert.True(t, uow.initialized)
	MustResolve[UnitOfWork](scope)
	assert.Equal(t, 1, next)
}

func TestScope_DisposeInReverseOrder(t *testing.T) {
	container := New()
	var log []int
	next := 0
	type first struct{ *trackedUnit }
	type second struct{ *trackedUnit }

	require.NoError(t, container.Factory(first{}, func(r Resolver) (any, error) {
		u, err := trackedFactory(&log, &next)(r)
		return first{u.(*trackedUnit)}, err
	}, WithLifetime(LifetimeScoped)))
	require.NoError(t, container.Factory(second{}, func(r Resolver) (any, error) {
		u, err := trackedFactory(&log, &next)(r)
		return second{u.(*trackedUnit)}, err
	}, WithLifetime(LifetimeScoped)))

	scope := container.CreateScope()
	MustResolve[first](scope)
	MustResolve[second](scope)

	require.NoError(t, scope.Dispose())
	assert.Equal(t, []int{2, 1}, log)

	// Idempotent
	require.NoError(t, scope.Dispose())
	assert.Equal(t, []int{2, 1}, log)
}

func TestScope_DisposeCollectsErrors(t *testing.T) {
	container := New()
	var log []int
	require.NoError(t, container.Factory((*UnitOfWork)(nil), func(Resolver) (any, error) {
		return &trackedUnit{id: 1, log: &log, failDispose: true}, nil
	}, WithLifetime(LifetimeScoped)))

	scope := container.CreateScope()
	MustResolve[UnitOfWork](scope)

	err := scope.Dispose()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispose failed")
}

func TestScope_ResolveAfterDispose(t *testing.T) {
	container := New()
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))

	scope := container.CreateScope()
	require.NoError(t, scope.Dispose())

	_, err := Resolve[Logger](scope)
	var disposed *ObjectDisposedError
	require.ErrorAs(t, err, &disposed)
	assert.Contains(t, disposed.Object, scope.ID())

	// Registry is untouched
	_, err = Resolve[Logger](container.CreateScope())
	assert.NoError(t, err)
}

func TestContainer_ResolveAfterDispose(t *testing.T) {
	container := New()
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))
	scope := container.CreateScope()

	require.NoError(t, container.Dispose())
	require.NoError(t, container.Dispose())

	for _, r := range []Resolver{scope, container.Root()} {
		_, err := Resolve[Logger](r)
		var disposed *ObjectDisposedError
		assert.ErrorAs(t, err, &disposed)
	}
	assert.Len(t, container.Registry().Lookup(TypeOf[Logger]()), 1)
}

func TestScope_DoesNotKeepContainerAlive(t *testing.T) {
	scope := func() *Scope {
		container := New()
		_ = container.Bind((*Logger)(nil), &ConsoleLogger{})
		return container.CreateScope()
	}()

	var err error
	for range 10 {
		runtime.GC()
		if _, err = Resolve[Logger](scope); err != nil {
			break
		}
	}

	var disposed *ObjectDisposedError
	require.ErrorAs(t, err, &disposed)
	assert.Equal(t, "container", disposed.Object)
}

func TestScope_LazyFailsAfterDispose(t *testing.T) {
	container := New()
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))

	scope := container.CreateScope()
	lazy := MustResolve[Lazy[Logger]](scope)
	require.NoError(t, scope.Dispose())

	_, err := lazy.Value()
	var disposed *ObjectDisposedError
	assert.ErrorAs(t, err, &disposed)
}

func TestChildScope(t *testing.T) {
	container := New()
	var log []int
	next := 0
	require.NoError(t, container.Factory((*UnitOfWork)(nil), trackedFactory(&log, &next), WithLifetime(LifetimeScoped)))

	parent := container.CreateScope()
	child, err := parent.CreateChildScope()
	require.NoError(t, err)

	fromParent := MustResolve[UnitOfWork](parent)
	fromChild := MustResolve[UnitOfWork](child)
	assert.NotSame(t, fromParent, fromChild)

	// Children are disposed first
	require.NoError(t, parent.Dispose())
	assert.Equal(t, []int{2, 1}, log)

	_, err = Resolve[UnitOfWork](child)
	var disposed *ObjectDisposedError
	assert.ErrorAs(t, err, &disposed)

	_, err = parent.CreateChildScope()
	assert.ErrorAs(t, err, &disposed)
}

func TestChildScope_DisposeDetachesFromParent(t *testing.T) {
	container := New()
	parent := container.CreateScope()

	for range 50 {
		child, err := parent.CreateChildScope()
		require.NoError(t, err)
		require.NoError(t, child.Dispose())
	}

	parent.mu.Lock()
	remaining := len(parent.children)
	parent.mu.Unlock()
	assert.Zero(t, remaining)

	kept, err := parent.CreateChildScope()
	require.NoError(t, err)
	require.NoError(t, parent.Dispose())
	assert.ErrorAs(t, kept.checkAlive(), new(*ObjectDisposedError))
}

func TestScope_MakeSafe(t *testing.T) {
	container := New()
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))
	scope := container.CreateScope()

	instance, err := scope.MakeSafe((*Logger)(nil))
	require.NoError(t, err)
	assert.IsType(t, &ConsoleLogger{}, instance)
	assert.NotPanics(t, func() { scope.Make((*Logger)(nil)) })

	_, err = scope.MakeSafe(nil)
	var bindingErr *InvalidBindingError
	assert.ErrorAs(t, err, &bindingErr)
}

type cycleA struct{ b *cycleB }
type cycleB struct{ a *cycleA }

func TestCircularDependency(t *testing.T) {
	for _, lifetime := range []Lifetime{LifetimeTransient, LifetimeSingleton, LifetimeScoped} {
		t.Run(lifetime.String(), func(t *testing.T) {
			container := New()
			require.NoError(t, container.Factory(&cycleA{}, func(r Resolver) (any, error) {
				b, err := Resolve[*cycleB](r)
				return &cycleA{b: b}, err
			}, WithLifetime(lifetime)))
			require.NoError(t, container.Factory(&cycleB{}, func(r Resolver) (any, error) {
				a, err := Resolve[*cycleA](r)
				return &cycleB{a: a}, err
			}, WithLifetime(lifetime)))

			_, err := Resolve[*cycleA](container.Root())
			var cycle *CircularDependencyError
			require.ErrorAs(t, err, &cycle)
			assert.Len(t, cycle.Path, 3)
			assert.Contains(t, cycle.Error(), "->")
		})
	}
}

func TestCircularDependency_ThroughConstructors(t *testing.T) {
	container := New()
	require.NoError(t, container.BindConstructor(&cycleA{}, func(b *cycleB) *cycleA { return &cycleA{b: b} }))
	require.NoError(t, container.BindConstructor(&cycleB{}, func(a *cycleA) *cycleB { return &cycleB{a: a} }))

	_, err := Resolve[*cycleA](container.Root())
	var cycle *CircularDependencyError
	assert.ErrorAs(t, err, &cycle)
}

// resolveWithin fails the test instead of hanging when resolve blocks.
func resolveWithin(t *testing.T, resolve func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- resolve() }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("resolution did not return")
		return nil
	}
}

type peerNode struct {
	peers []*peerNode
}

func newPeerNode(peers []*peerNode) *peerNode {
	return &peerNode{peers: peers}
}

func TestCircularDependency_ThroughSlice(t *testing.T) {
	nodeType := reflect.TypeFor[*peerNode]()
	for _, lifetime := range []Lifetime{LifetimeTransient, LifetimeSingleton, LifetimeScoped} {
		t.Run(lifetime.String(), func(t *testing.T) {
			container := New()
			require.NoError(t, container.bindConstructorWithLifetime(&peerNode{}, newPeerNode, lifetime, false, nil))

			err := resolveWithin(t, func() error {
				_, err := Resolve[*peerNode](container.Root())
				return err
			})
			var cycle *CircularDependencyError
			require.ErrorAs(t, err, &cycle)
			assert.Equal(t, []reflect.Type{nodeType, reflect.TypeFor[[]*peerNode](), nodeType}, cycle.Path)
		})
	}
}

type selfReader struct{}

func TestCircularDependency_ThroughDeferredAccessors(t *testing.T) {
	readers := map[string]func(Resolver) error{
		"lazy": func(r Resolver) error {
			lazy, err := Resolve[Lazy[*selfReader]](r)
			if err != nil {
				return err
			}
			_, err = lazy.Value()
			return err
		},
		"meta": func(r Resolver) error {
			meta, err := Resolve[Meta[*selfReader, map[string]any]](r)
			if err != nil {
				return err
			}
			_, err = meta.Value()
			return err
		},
		"factory": func(r Resolver) error {
			factory, err := Resolve[Factory[*selfReader]](r)
			if err != nil {
				return err
			}
			_, err = factory()
			return err
		},
	}

	for name, read := range readers {
		for _, lifetime := range []Lifetime{LifetimeSingleton, LifetimeScoped} {
			t.Run(name+"/"+lifetime.String(), func(t *testing.T) {
				container := New()
				require.NoError(t, container.Factory(&selfReader{}, func(r Resolver) (any, error) {
					if err := read(r); err != nil {
						return nil, err
					}
					return &selfReader{}, nil
				}, WithLifetime(lifetime)))

				err := resolveWithin(t, func() error {
					_, err := Resolve[*selfReader](container.Root())
					return err
				})
				var cycle *CircularDependencyError
				require.ErrorAs(t, err, &cycle)
				assert.Equal(t, reflect.TypeFor[*selfReader](), cycle.Path[len(cycle.Path)-1])
			})
		}
	}
}

func TestDeferredAccessor_ReadAfterConstruction(t *testing.T) {
	type holder struct {
		self Factory[*selfReader]
	}
	container := New()
	require.NoError(t, container.Singleton(&selfReader{}, &selfReader{}))
	require.NoError(t, container.SingletonConstructor(&holder{}, func(self Factory[*selfReader]) *holder {
		return &holder{self: self}
	}))

	h := MustResolve[*holder](container.Root())
	got, err := h.self()
	require.NoError(t, err)
	assert.Same(t, MustResolve[*selfReader](container.Root()), got)
}
