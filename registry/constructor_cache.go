package registry

import (
	"reflect"
	"sync"
)

// constructorCache memoizes the constructor chosen for each instance type so
// selection runs at most once per type.
type constructorCache struct {
	mu       sync.RWMutex
	selected map[reflect.Type]*Constructor
}

// newConstructorCache creates an empty cache.
func newConstructorCache() *constructorCache {
	return &constructorCache{
		selected: make(map[reflect.Type]*Constructor),
	}
}

// getOrCompute returns the cached constructor for typ or computes it.
// compute runs without holding the cache lock because it reads the registry;
// failed selections are not cached.
func (cc *constructorCache) getOrCompute(typ reflect.Type, compute func() (*Constructor, error)) (*Constructor, error) {
	// Fast path: check cache with read lock
	cc.mu.RLock()
	c, exists := cc.selected[typ]
	cc.mu.RUnlock()

	if exists {
		return c, nil
	}

	c, err := compute()
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	// Keep the first published choice if another goroutine won the race
	if existing, ok := cc.selected[typ]; ok {
		return existing, nil
	}
	cc.selected[typ] = c
	return c, nil
}

// clear drops all memoized selections.
func (cc *constructorCache) clear() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.selected = make(map[reflect.Type]*Constructor)
}
