package registry

import "reflect"

// Descriptor pairs an underlying entry with a factory producing the value a
// source hands out for it. Entry is nil when the value does not stem from a
// single registration.
type Descriptor struct {
	Entry   *Entry
	Factory func() (any, error)
}

// Source synthesizes resolvable services for a family of contract shapes,
// such as "a slice of T", from whatever is registered for the inner type.
// Sources are consulted in registration order and the first match wins.
type Source interface {
	// IsMatch reports whether t has the shape this source handles. It must
	// be a pure structural check.
	IsMatch(t reflect.Type) bool

	// GetServiceDescriptors returns one descriptor per underlying
	// registration of the inner type of t.
	GetServiceDescriptors(r Resolver, t reflect.Type) ([]Descriptor, error)

	// GetService adapts the descriptors to the value requested by t.
	GetService(r Resolver, t reflect.Type) (any, error)
}
