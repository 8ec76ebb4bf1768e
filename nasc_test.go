package nasc

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toutaio/nasc-resolver/registry"
)

// Test interfaces and implementations
type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct {
	messages []string
}

func (l *ConsoleLogger) Log(msg string) {
	l.messages = append(l.messages, msg)
}

type Database interface {
	Connect() error
}

type MockDB struct {
	connected bool
}

func (db *MockDB) Connect() error {
	db.connected = true
	return nil
}

type Plugin interface {
	Name() string
}

type namedPlugin struct {
	name string
}

func (p *namedPlugin) Name() string { return p.name }

func pluginFactory(name string) FactoryFunc {
	return func(Resolver) (any, error) {
		return &namedPlugin{name: name}, nil
	}
}

func TestNew(t *testing.T) {
	container := New()
	require.NotNil(t, container)
	assert.NotNil(t, container.Registry())
	assert.NotNil(t, container.Root())
	assert.Len(t, container.Registry().Sources(), 5)
}

func TestNew_WithOptions(t *testing.T) {
	container := New(WithDebug())
	require.NotNil(t, container)
}

func TestNew_FailingOptionPanics(t *testing.T) {
	failing := func(*Nasc) error { return errors.New("boom") }
	assert.Panics(t, func() { New(failing) })
}

func TestBind_Success(t *testing.T) {
	container := New()
	err := container.Bind((*Logger)(nil), &ConsoleLogger{})
	require.NoError(t, err)

	logger, err := Resolve[Logger](container.Root())
	require.NoError(t, err)
	assert.IsType(t, &ConsoleLogger{}, logger)
}

func TestBind_InvalidArguments(t *testing.T) {
	tests := []struct {
		name     string
		abstract any
		concrete any
	}{
		{name: "nil abstract type", abstract: nil, concrete: &ConsoleLogger{}},
		{name: "nil concrete type", abstract: (*Logger)(nil), concrete: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := New()
			err := container.Bind(tt.abstract, tt.concrete)
			var bindingErr *InvalidBindingError
			assert.ErrorAs(t, err, &bindingErr)
		})
	}
}

func TestBind_NotImplementing(t *testing.T) {
	container := New()
	err := container.Bind((*Logger)(nil), &MockDB{})

	var entryErr *InvalidEntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Contains(t, entryErr.Error(), "does not satisfy")
}

func TestBind_AcceptsReflectTypes(t *testing.T) {
	container := New()
	err := container.Bind(TypeOf[Logger](), reflect.TypeFor[*ConsoleLogger]())
	require.NoError(t, err)
	assert.True(t, container.Root().IsRegistered(TypeOf[Logger]()))
}

func TestBind_LastRegistrationWins(t *testing.T) {
	container := New()
	require.NoError(t, container.Instance((*Plugin)(nil), &namedPlugin{name: "first"}))
	require.NoError(t, container.Instance((*Plugin)(nil), &namedPlugin{name: "second"}))

	plugin, err := Resolve[Plugin](container.Root())
	require.NoError(t, err)
	assert.Equal(t, "second", plugin.Name())
}

func TestTransient_NewInstanceEachTime(t *testing.T) {
	container := New()
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))

	first := MustResolve[Logger](container.Root())
	second := MustResolve[Logger](container.Root())
	assert.NotSame(t, first, second)
}

func TestSingleton_SameInstance(t *testing.T) {
	container := New()
	require.NoError(t, container.Singleton((*Database)(nil), &MockDB{}))

	first := MustResolve[Database](container.Root())
	second := MustResolve[Database](container.Root())
	assert.Same(t, first, second)

	// Other scopes share the singleton
	scope := container.CreateScope()
	third := MustResolve[Database](scope)
	assert.Same(t, first, third)
}

func TestInstance_AlwaysSameValue(t *testing.T) {
	container := New()
	db := &MockDB{}
	require.NoError(t, container.Instance((*Database)(nil), db))

	resolved := MustResolve[Database](container.Root())
	assert.Same(t, db, resolved)
}

func TestInstance_Nil(t *testing.T) {
	container := New()
	err := container.Instance((*Database)(nil), nil)
	var bindingErr *InvalidBindingError
	assert.ErrorAs(t, err, &bindingErr)
}

func TestFactory_CalledEveryTime(t *testing.T) {
	container := New()
	calls := 0
	err := container.Factory((*Logger)(nil), func(Resolver) (any, error) {
		calls++
		return &ConsoleLogger{}, nil
	})
	require.NoError(t, err)

	MustResolve[Logger](container.Root())
	MustResolve[Logger](container.Root())
	assert.Equal(t, 2, calls)
}

func TestFactory_ResolvesDependencies(t *testing.T) {
	container := New()
	db := &MockDB{}
	require.NoError(t, container.Instance((*Database)(nil), db))

	type repo struct{ db Database }
	err := container.Factory(&repo{}, func(r Resolver) (any, error) {
		db, err := Resolve[Database](r)
		if err != nil {
			return nil, err
		}
		return &repo{db: db}, nil
	})
	require.NoError(t, err)

	resolved := MustResolve[*repo](container.Root())
	assert.Same(t, db, resolved.db)
}

func TestFactory_Error(t *testing.T) {
	container := New()
	boom := errors.New("boom")
	require.NoError(t, container.Factory((*Logger)(nil), func(Resolver) (any, error) {
		return nil, boom
	}))

	_, err := Resolve[Logger](container.Root())
	require.ErrorIs(t, err, boom)

	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestFactory_Nil(t *testing.T) {
	container := New()
	err := container.Factory((*Logger)(nil), nil)
	var bindingErr *InvalidBindingError
	assert.ErrorAs(t, err, &bindingErr)
}

func TestSingletonFactory_FailureIsRetried(t *testing.T) {
	container := New()
	calls := 0
	require.NoError(t, container.SingletonFactory((*Logger)(nil), func(Resolver) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("not yet")
		}
		return &ConsoleLogger{}, nil
	}))

	_, err := Resolve[Logger](container.Root())
	require.Error(t, err)

	first := MustResolve[Logger](container.Root())
	second := MustResolve[Logger](container.Root())
	assert.Same(t, first, second)
	assert.Equal(t, 2, calls)
}

func TestResolve_NotRegistered(t *testing.T) {
	container := New()

	_, err := Resolve[Logger](container.Root())
	require.ErrorIs(t, err, ErrNotRegistered)

	_, ok, err := TryResolve[Logger](container.Root())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMake(t *testing.T) {
	container := New()
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))

	instance := container.Make((*Logger)(nil))
	_, ok := instance.(Logger)
	assert.True(t, ok)
}

func TestMake_PanicsWhenUnresolvable(t *testing.T) {
	container := New()
	assert.Panics(t, func() { container.Make((*Logger)(nil)) })

	_, err := container.MakeSafe((*Logger)(nil))
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestMustResolve_Panics(t *testing.T) {
	container := New()
	assert.Panics(t, func() { MustResolve[Logger](container.Root()) })
}

func TestAdd_AggregatesRegistrations(t *testing.T) {
	container := New()
	require.NoError(t, container.AddFactory((*Plugin)(nil), pluginFactory("auth")))
	require.NoError(t, container.AddFactory((*Plugin)(nil), pluginFactory("cache")))

	entries := container.Registry().Lookup(TypeOf[Plugin]())
	assert.Len(t, entries, 2)

	_, err := Resolve[Plugin](container.Root())
	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, 2, ambiguous.Count)
}

func TestAdd_SingleMemberResolvesDirectly(t *testing.T) {
	container := New()
	require.NoError(t, container.AddInstance((*Plugin)(nil), &namedPlugin{name: "only"}))

	plugin, err := Resolve[Plugin](container.Root())
	require.NoError(t, err)
	assert.Equal(t, "only", plugin.Name())
}

func TestAdd_LifetimeOption(t *testing.T) {
	container := New()
	require.NoError(t, container.Add((*Logger)(nil), &ConsoleLogger{}, WithLifetime(LifetimeSingleton)))

	entries := container.Registry().Lookup(TypeOf[Logger]())
	require.Len(t, entries, 1)
	assert.Equal(t, LifetimeSingleton, entries[0].Lifetime)
	assert.Same(t, MustResolve[Logger](container.Root()), MustResolve[Logger](container.Root()))
}

func TestContractOf(t *testing.T) {
	tests := []struct {
		name  string
		token any
		want  reflect.Type
	}{
		{name: "interface pointer", token: (*Logger)(nil), want: TypeOf[Logger]()},
		{name: "reflect type", token: TypeOf[Database](), want: TypeOf[Database]()},
		{name: "concrete pointer", token: &MockDB{}, want: reflect.TypeFor[*MockDB]()},
		{name: "value", token: 42, want: reflect.TypeFor[int]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := contractOf(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister_PrebuiltEntry(t *testing.T) {
	container := New()
	entry, err := registry.NewInstance(TypeOf[Plugin](), &namedPlugin{name: "prebuilt"})
	require.NoError(t, err)
	require.NoError(t, container.Register(entry))

	assert.Equal(t, "prebuilt", MustResolve[Plugin](container.Root()).Name())
}
