package nasc

import (
	"reflect"

	"github.com/toutaio/nasc-resolver/registry"
)

var errorType = reflect.TypeFor[error]()

// FactorySource synthesizes Factory[T], or any func() (T, error) type. T
// must have exactly one registration when resolved directly. Every call goes
// through the registration, so a transient T is built anew each time and a
// singleton T is shared.
type FactorySource struct {
	registry *registry.Registry
}

// NewFactorySource creates a FactorySource reading from reg.
func NewFactorySource(reg *registry.Registry) *FactorySource {
	return &FactorySource{registry: reg}
}

// IsMatch reports whether t has the func() (T, error) shape.
func (s *FactorySource) IsMatch(t reflect.Type) bool {
	return t.Kind() == reflect.Func &&
		!t.IsVariadic() &&
		t.NumIn() == 0 &&
		t.NumOut() == 2 &&
		t.Out(1) == errorType
}

// GetServiceDescriptors returns one factory per registration of T.
func (s *FactorySource) GetServiceDescriptors(r registry.Resolver, t reflect.Type) ([]registry.Descriptor, error) {
	inner, err := deferredDescriptors(s.registry, r, t.Out(0))
	if err != nil {
		return nil, err
	}

	out := make([]registry.Descriptor, len(inner))
	for i, d := range inner {
		out[i] = registry.Descriptor{
			Entry: d.Entry,
			Factory: func() (any, error) {
				return makeFactory(t, d.Factory), nil
			},
		}
	}
	return out, nil
}

// GetService returns the factory of the unique registration of T.
func (s *FactorySource) GetService(r registry.Resolver, t reflect.Type) (any, error) {
	descriptors, err := s.GetServiceDescriptors(r, t)
	if err != nil {
		return nil, err
	}
	d, err := single(descriptors, t.Out(0))
	if err != nil {
		return nil, err
	}
	return d.Factory()
}

// makeFactory wraps produce into a function of type t.
func makeFactory(t reflect.Type, produce func() (any, error)) any {
	elem := t.Out(0)
	fail := func(err error) []reflect.Value {
		errValue := reflect.New(errorType).Elem()
		errValue.Set(reflect.ValueOf(err))
		return []reflect.Value{reflect.Zero(elem), errValue}
	}

	fn := reflect.MakeFunc(t, func([]reflect.Value) []reflect.Value {
		instance, err := produce()
		if err != nil {
			return fail(err)
		}
		value, err := registry.ValueFor(instance, elem)
		if err != nil {
			return fail(err)
		}
		return []reflect.Value{value, reflect.Zero(errorType)}
	})
	return fn.Interface()
}
