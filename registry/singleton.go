package registry

import (
	"sync"
	"sync/atomic"
)

// singleton holds a lazily created value and guarantees it is built at most
// once. Unlike sync.Once, a failed creation leaves the slot empty so a later
// caller can try again.
type singleton struct {
	mu    sync.Mutex
	done  atomic.Bool
	value any
}

// getOrCreate returns the cached value or creates it with factory. Concurrent
// first callers block on the same creation and observe the same value. The
// second return value reports whether this call ran the factory.
//
// This method is goroutine-safe.
func (s *singleton) getOrCreate(factory func() (any, error)) (any, bool, error) {
	// Fast path: value already published
	if s.done.Load() {
		return s.value, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the lock
	if s.done.Load() {
		return s.value, false, nil
	}

	value, err := factory()
	if err != nil {
		return nil, false, err
	}
	s.value = value
	s.done.Store(true)
	return value, true, nil
}

// peek returns the cached value without creating it.
func (s *singleton) peek() (any, bool) {
	if s.done.Load() {
		return s.value, true
	}
	return nil, false
}
