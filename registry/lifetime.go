package registry

// Lifetime represents the caching policy of a registration entry.
type Lifetime string

const (
	// LifetimeTransient creates a new instance on every resolution.
	LifetimeTransient Lifetime = "transient"

	// LifetimeSingleton creates the instance once, on first resolution, and
	// reuses it for the lifetime of the registry.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeScoped creates one instance per resolution scope.
	LifetimeScoped Lifetime = "scoped"
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	return string(l)
}

// Kind tells how an entry produces its instance.
type Kind int

const (
	// KindInstance entries return a fixed value.
	KindInstance Kind = iota
	// KindFactory entries call a factory function.
	KindFactory
	// KindConstructible entries build their instance type through a
	// selected constructor.
	KindConstructible
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindFactory:
		return "factory"
	case KindConstructible:
		return "constructible"
	default:
		return "unknown"
	}
}
