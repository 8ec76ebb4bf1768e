package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotRegistered is returned by Resolve when neither an entry nor a
// synthetic source can satisfy the requested contract.
var ErrNotRegistered = errors.New("no registration for contract")

// MissingConstructorError is returned when a constructible entry has no
// constructor whose parameters can all be satisfied.
type MissingConstructorError struct {
	Type       reflect.Type
	Candidates []string
}

func (e *MissingConstructorError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no eligible constructor for %v: none declared", e.Type)
	}
	return fmt.Sprintf("no eligible constructor for %v among: %s", e.Type, strings.Join(e.Candidates, ", "))
}

// AmbiguousConstructorError is returned when two or more constructors tie on
// the highest satisfiable parameter count.
type AmbiguousConstructorError struct {
	Type         reflect.Type
	Constructors []string
}

func (e *AmbiguousConstructorError) Error() string {
	return fmt.Sprintf("ambiguous constructors for %v: %s", e.Type, strings.Join(e.Constructors, " and "))
}

// NoImplementationForContractError is returned by sources that require a
// unique registration of their inner type and find none.
type NoImplementationForContractError struct {
	Contract reflect.Type
}

func (e *NoImplementationForContractError) Error() string {
	return fmt.Sprintf("no implementation registered for contract %v", e.Contract)
}

// AmbiguousMatchError is returned when a single registration is required but
// several exist.
type AmbiguousMatchError struct {
	Contract reflect.Type
	Count    int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("contract %v has %d registrations, expected exactly one", e.Contract, e.Count)
}

// ObjectDisposedError is returned when a resolution is attempted on a scope
// or container that has already been disposed.
type ObjectDisposedError struct {
	Object string
}

func (e *ObjectDisposedError) Error() string {
	return fmt.Sprintf("cannot resolve from disposed %s", e.Object)
}

// InvalidEntryError is returned when an entry is built with inconsistent
// parameters.
type InvalidEntryError struct {
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid entry: %s", e.Reason)
}

// InvalidConstructorError is returned when a constructor function has an
// unsupported signature or a bad default value.
type InvalidConstructorError struct {
	Reason string
}

func (e *InvalidConstructorError) Error() string {
	return fmt.Sprintf("invalid constructor: %s", e.Reason)
}

// CircularDependencyError indicates a contract was requested while it was
// already being resolved higher up the same call chain.
type CircularDependencyError struct {
	Path []reflect.Type
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	names := make([]string, len(e.Path))
	for i, t := range e.Path {
		names[i] = t.String()
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(names, " -> "))
}

// ResolutionError wraps a failure that happened while producing an instance
// for a matched contract.
type ResolutionError struct {
	Type  reflect.Type
	Cause error
}

func (e *ResolutionError) Error() string {
	typeStr := "unknown"
	if e.Type != nil {
		typeStr = e.Type.String()
	}
	if e.Cause == nil {
		return fmt.Sprintf("failed to resolve %s", typeStr)
	}
	return fmt.Sprintf("failed to resolve %s: %v", typeStr, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}
