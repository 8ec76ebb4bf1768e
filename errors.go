package nasc

import "github.com/toutaio/nasc-resolver/registry"

// ErrNotRegistered is returned by Resolve when nothing can satisfy a contract.
var ErrNotRegistered = registry.ErrNotRegistered

type (
	// MissingConstructorError is returned when no constructor of a
	// constructible type can be satisfied.
	MissingConstructorError = registry.MissingConstructorError

	// AmbiguousConstructorError is returned when constructors tie on the
	// highest satisfiable parameter count.
	AmbiguousConstructorError = registry.AmbiguousConstructorError

	// NoImplementationForContractError is returned when a deferred accessor
	// or factory is requested for a type without registrations.
	NoImplementationForContractError = registry.NoImplementationForContractError

	// AmbiguousMatchError is returned when one registration is required but
	// several exist.
	AmbiguousMatchError = registry.AmbiguousMatchError

	// ObjectDisposedError is returned when resolving from a disposed scope
	// or container.
	ObjectDisposedError = registry.ObjectDisposedError

	// InvalidEntryError is returned for inconsistent registrations.
	InvalidEntryError = registry.InvalidEntryError

	// InvalidConstructorError is returned for unsupported constructor functions.
	InvalidConstructorError = registry.InvalidConstructorError

	// CircularDependencyError indicates a contract depends on itself.
	CircularDependencyError = registry.CircularDependencyError

	// ResolutionError wraps a failure to build a matched contract.
	ResolutionError = registry.ResolutionError
)

// InvalidBindingError is returned when a binding has invalid parameters.
type InvalidBindingError struct {
	Reason string
}

func (e *InvalidBindingError) Error() string {
	return "invalid binding: " + e.Reason
}
