package nasc

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/toutaio/nasc-resolver/registry"
)

// LazySource synthesizes Lazy[T]. T must have exactly one registration when
// resolved directly; inside a slice every registration gets its own Lazy.
type LazySource struct {
	registry *registry.Registry
}

// NewLazySource creates a LazySource reading from reg.
func NewLazySource(reg *registry.Registry) *LazySource {
	return &LazySource{registry: reg}
}

// IsMatch reports whether t is a Lazy instantiation.
func (s *LazySource) IsMatch(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || !t.Implements(lazyShapeType) {
		return false
	}
	// Structs embedding a Lazy implement the shape through promotion.
	shape := reflect.Zero(t).Interface().(lazyShape)
	return reflect.TypeOf(shape.bindLazy(nil)) == t
}

// GetServiceDescriptors returns one unread Lazy per registration of T.
func (s *LazySource) GetServiceDescriptors(r registry.Resolver, t reflect.Type) ([]registry.Descriptor, error) {
	shape := reflect.Zero(t).Interface().(lazyShape)

	inner, err := deferredDescriptors(s.registry, r, shape.lazyElem())
	if err != nil {
		return nil, err
	}

	out := make([]registry.Descriptor, len(inner))
	for i, d := range inner {
		out[i] = registry.Descriptor{
			Entry: d.Entry,
			Factory: func() (any, error) {
				return shape.bindLazy(newLazyCell(d.Factory)), nil
			},
		}
	}
	return out, nil
}

// GetService returns the Lazy of the unique registration of T.
func (s *LazySource) GetService(r registry.Resolver, t reflect.Type) (any, error) {
	descriptors, err := s.GetServiceDescriptors(r, t)
	if err != nil {
		return nil, err
	}
	d, err := single(descriptors, reflect.Zero(t).Interface().(lazyShape).lazyElem())
	if err != nil {
		return nil, err
	}
	return d.Factory()
}

// MetaSource synthesizes Meta[T, M]. T must have exactly one registration
// when resolved directly; inside a slice every registration gets its own
// Meta.
type MetaSource struct {
	registry *registry.Registry
}

// NewMetaSource creates a MetaSource reading from reg.
func NewMetaSource(reg *registry.Registry) *MetaSource {
	return &MetaSource{registry: reg}
}

// IsMatch reports whether t is a Meta instantiation.
func (s *MetaSource) IsMatch(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || !t.Implements(metaShapeType) {
		return false
	}
	shape := reflect.Zero(t).Interface().(metaShape)
	return reflect.TypeOf(shape.bindMeta(nil, nil)) == t
}

// GetServiceDescriptors returns one unread Meta per registration of T, with
// the metadata already extracted.
func (s *MetaSource) GetServiceDescriptors(r registry.Resolver, t reflect.Type) ([]registry.Descriptor, error) {
	shape := reflect.Zero(t).Interface().(metaShape)
	elem, metaType := shape.metaTypes()

	inner, err := deferredDescriptors(s.registry, r, elem)
	if err != nil {
		return nil, err
	}

	out := make([]registry.Descriptor, len(inner))
	for i, d := range inner {
		var md registry.Metadata
		if d.Entry != nil {
			md = d.Entry.Metadata
		}
		metadata, err := buildMetadata(md, metaType)
		if err != nil {
			return nil, fmt.Errorf("metadata of %v: %w", elem, err)
		}
		out[i] = registry.Descriptor{
			Entry: d.Entry,
			Factory: func() (any, error) {
				return shape.bindMeta(newLazyCell(d.Factory), metadata), nil
			},
		}
	}
	return out, nil
}

// GetService returns the Meta of the unique registration of T.
func (s *MetaSource) GetService(r registry.Resolver, t reflect.Type) (any, error) {
	descriptors, err := s.GetServiceDescriptors(r, t)
	if err != nil {
		return nil, err
	}
	elem, _ := reflect.Zero(t).Interface().(metaShape).metaTypes()
	d, err := single(descriptors, elem)
	if err != nil {
		return nil, err
	}
	return d.Factory()
}

// deferredDescriptors returns the descriptors of elem for factories that run
// later. Each factory fails once the scope it came from is disposed.
func deferredDescriptors(reg *registry.Registry, res registry.Resolver, elem reflect.Type) ([]registry.Descriptor, error) {
	descriptors, err := reg.Descriptors(res, elem)
	if err != nil {
		return nil, err
	}

	out := make([]registry.Descriptor, len(descriptors))
	for i, d := range descriptors {
		out[i] = registry.Descriptor{
			Entry: d.Entry,
			Factory: func() (any, error) {
				if err := alive(res); err != nil {
					return nil, err
				}
				return d.Factory()
			},
		}
	}
	return out, nil
}

// single returns the only descriptor of elem.
func single(descriptors []registry.Descriptor, elem reflect.Type) (registry.Descriptor, error) {
	switch len(descriptors) {
	case 0:
		return registry.Descriptor{}, &NoImplementationForContractError{Contract: elem}
	case 1:
		return descriptors[0], nil
	default:
		return registry.Descriptor{}, &AmbiguousMatchError{Contract: elem, Count: len(descriptors)}
	}
}

// buildMetadata converts entry metadata to metaType: a string keyed map
// receives a copy, a struct gets its fields filled by name or `meta` tag.
func buildMetadata(md registry.Metadata, metaType reflect.Type) (any, error) {
	switch {
	case metaType.Kind() == reflect.Map && metaType.Key().Kind() == reflect.String:
		out := reflect.MakeMapWithSize(metaType, len(md))
		for k, v := range md {
			value, err := metadataValue(v, metaType.Elem())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(metaType.Key()), value)
		}
		return out.Interface(), nil

	case metaType.Kind() == reflect.Struct:
		out := reflect.New(metaType).Elem()
		for i := range metaType.NumField() {
			field := metaType.Field(i)
			if !field.IsExported() {
				continue
			}
			key := field.Name
			if tag, ok := field.Tag.Lookup("meta"); ok {
				if tag == "-" {
					continue
				}
				key = tag
			}
			raw, ok := md[key]
			if !ok {
				continue
			}
			value, err := metadataValue(raw, field.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			out.Field(i).Set(value)
		}
		return out.Interface(), nil

	case metaType.Kind() == reflect.Interface && metaType.NumMethod() == 0:
		return maps.Clone(md), nil

	default:
		return nil, fmt.Errorf("unsupported metadata type %v", metaType)
	}
}

func metadataValue(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(raw)
	switch {
	case v.Type().AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	case v.Type().ConvertibleTo(t) && v.Kind() != reflect.String && t.Kind() != reflect.String:
		return v.Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("value of type %v is not assignable to %v", v.Type(), t)
	}
}
