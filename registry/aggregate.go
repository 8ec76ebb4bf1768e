package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Aggregate groups several entries registered for the same contract type.
// Insertion order is preserved and is the order seen by sequence consumers.
type Aggregate struct {
	contract reflect.Type
	mu       sync.RWMutex
	entries  []*Entry
}

// NewAggregate creates an aggregate holding first.
func NewAggregate(first *Entry) (*Aggregate, error) {
	if first == nil {
		return nil, &InvalidEntryError{Reason: "aggregate needs a first entry"}
	}
	return &Aggregate{
		contract: first.ContractType,
		entries:  []*Entry{first},
	}, nil
}

// Add appends e to the aggregate.
func (a *Aggregate) Add(e *Entry) error {
	if e == nil {
		return &InvalidEntryError{Reason: "entry cannot be nil"}
	}
	if e.ContractType != a.contract {
		return &InvalidEntryError{
			Reason: fmt.Sprintf("entry for %v cannot join aggregate of %v", e.ContractType, a.contract),
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

// Contract returns the shared contract type.
func (a *Aggregate) Contract() reflect.Type {
	return a.contract
}

// Entries returns the members in insertion order.
func (a *Aggregate) Entries() []*Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.entries)
}

// Len returns the number of members.
func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// First returns the member with the highest priority, the first inserted.
func (a *Aggregate) First() *Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.entries[0]
}

// GetService resolves the aggregate as a single instance. It only succeeds
// when the aggregate has exactly one member; a single consumer is never handed
// an arbitrary pick among several implementations.
func (a *Aggregate) GetService(r Resolver) (any, error) {
	entries := a.Entries()
	if len(entries) != 1 {
		return nil, &AmbiguousMatchError{Contract: a.contract, Count: len(entries)}
	}
	return entries[0].GetService(r)
}
