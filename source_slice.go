package nasc

import (
	"fmt"
	"reflect"

	"github.com/toutaio/nasc-resolver/registry"
)

// SliceSource synthesizes []T from every registration of T, in registration
// order. Nothing registered for T yields an empty slice.
type SliceSource struct {
	registry *registry.Registry
}

// NewSliceSource creates a SliceSource reading from reg.
func NewSliceSource(reg *registry.Registry) *SliceSource {
	return &SliceSource{registry: reg}
}

// IsMatch reports whether t is a slice type.
func (s *SliceSource) IsMatch(t reflect.Type) bool {
	return t.Kind() == reflect.Slice
}

// GetServiceDescriptors returns a single descriptor building the whole slice.
func (s *SliceSource) GetServiceDescriptors(r registry.Resolver, t reflect.Type) ([]registry.Descriptor, error) {
	return []registry.Descriptor{{
		Factory: func() (any, error) {
			return s.GetService(r, t)
		},
	}}, nil
}

// GetService builds the slice.
func (s *SliceSource) GetService(r registry.Resolver, t reflect.Type) (any, error) {
	values, err := collect(s.registry, r, t.Elem())
	if err != nil {
		return nil, err
	}

	out := reflect.MakeSlice(t, 0, len(values))
	out = reflect.Append(out, values...)
	return out.Interface(), nil
}

// SeqSource synthesizes iter.Seq[T], or any func(func(T) bool) type, from
// every registration of T. The elements are built when the sequence is
// resolved, so the sequence is finite and can be ranged over repeatedly.
type SeqSource struct {
	registry *registry.Registry
}

// NewSeqSource creates a SeqSource reading from reg.
func NewSeqSource(reg *registry.Registry) *SeqSource {
	return &SeqSource{registry: reg}
}

// IsMatch reports whether t has the func(func(T) bool) shape.
func (s *SeqSource) IsMatch(t reflect.Type) bool {
	if t.Kind() != reflect.Func || t.IsVariadic() || t.NumIn() != 1 || t.NumOut() != 0 {
		return false
	}
	yield := t.In(0)
	return yield.Kind() == reflect.Func &&
		!yield.IsVariadic() &&
		yield.NumIn() == 1 &&
		yield.NumOut() == 1 &&
		yield.Out(0).Kind() == reflect.Bool
}

// GetServiceDescriptors returns a single descriptor building the sequence.
func (s *SeqSource) GetServiceDescriptors(r registry.Resolver, t reflect.Type) ([]registry.Descriptor, error) {
	return []registry.Descriptor{{
		Factory: func() (any, error) {
			return s.GetService(r, t)
		},
	}}, nil
}

// GetService builds the sequence.
func (s *SeqSource) GetService(r registry.Resolver, t reflect.Type) (any, error) {
	values, err := collect(s.registry, r, t.In(0).In(0))
	if err != nil {
		return nil, err
	}

	seq := reflect.MakeFunc(t, func(args []reflect.Value) []reflect.Value {
		yield := args[0]
		for _, v := range values {
			if !yield.Call([]reflect.Value{v})[0].Bool() {
				break
			}
		}
		return nil
	})
	return seq.Interface(), nil
}

// collect builds every registration of elem, in order.
func collect(reg *registry.Registry, r registry.Resolver, elem reflect.Type) ([]reflect.Value, error) {
	descriptors, err := reg.Descriptors(r, elem)
	if err != nil {
		return nil, err
	}

	values := make([]reflect.Value, 0, len(descriptors))
	for i, d := range descriptors {
		instance, err := d.Factory()
		if err != nil {
			return nil, fmt.Errorf("element %d of %v: %w", i, elem, err)
		}
		v, err := registry.ValueFor(instance, elem)
		if err != nil {
			return nil, fmt.Errorf("element %d of %v: %w", i, elem, err)
		}
		values = append(values, v)
	}
	return values, nil
}
