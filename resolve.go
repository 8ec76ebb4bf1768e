package nasc

import (
	"fmt"
	"reflect"

	"github.com/toutaio/nasc-resolver/registry"
)

// TypeOf returns the contract type for T. It is the usual way to name an
// interface contract without the (*Iface)(nil) idiom.
//
// Example:
//
//	container.Bind(nasc.TypeOf[Logger](), &ConsoleLogger{})
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Resolve resolves T from r and asserts the result.
//
// Example:
//
//	logger, err := nasc.Resolve[Logger](container.Root())
func Resolve[T any](r registry.Resolver) (T, error) {
	var zero T
	value, err := r.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return assertAs[T](value)
}

// TryResolve resolves T from r, reporting ok=false when nothing can
// satisfy T.
func TryResolve[T any](r registry.Resolver) (T, bool, error) {
	var zero T
	value, ok, err := r.TryResolve(reflect.TypeFor[T]())
	if err != nil || !ok {
		return zero, ok, err
	}
	out, err := assertAs[T](value)
	if err != nil {
		return zero, true, err
	}
	return out, true, nil
}

// MustResolve is Resolve panicking on error.
func MustResolve[T any](r registry.Resolver) T {
	value, err := Resolve[T](r)
	if err != nil {
		panic(err.Error())
	}
	return value
}

func assertAs[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	out, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("resolved value of type %T is not a %v", value, reflect.TypeFor[T]())
	}
	return out, nil
}

// contractOf turns a binding token into a contract type. A reflect.Type is
// used as is, a typed nil pointer to an interface names the interface, and
// any other value names its own type.
func contractOf(token any) (reflect.Type, error) {
	if token == nil {
		return nil, &InvalidBindingError{Reason: "abstract type cannot be nil"}
	}
	if t, ok := token.(reflect.Type); ok {
		if t == nil {
			return nil, &InvalidBindingError{Reason: "abstract type cannot be nil"}
		}
		return t, nil
	}

	t := reflect.TypeOf(token)
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		return t.Elem(), nil
	}
	return t, nil
}
