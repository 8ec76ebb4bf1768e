package nasc

import (
	"fmt"
	"reflect"
	"slices"
)

// ServiceProvider groups related registrations. Register runs during the
// build phase, before anything is resolved.
//
// Example:
//
//	type LoggingProvider struct{}
//
//	func (p *LoggingProvider) Register(container *nasc.Nasc) error {
//	    return container.Singleton(nasc.TypeOf[Logger](), &ConsoleLogger{})
//	}
type ServiceProvider interface {
	Register(container *Nasc) error
}

// BootableProvider is a provider with a second phase. Boot runs once every
// provider has registered, so it may resolve services of other providers.
//
// Example:
//
//	func (p *DatabaseProvider) Boot(container *nasc.Nasc) error {
//	    db, err := nasc.Resolve[Database](container.Root())
//	    if err != nil {
//	        return err
//	    }
//	    return db.Connect()
//	}
type BootableProvider interface {
	ServiceProvider
	Boot(container *Nasc) error
}

// DeferredProvider is a provider that may opt out of registration.
type DeferredProvider interface {
	ServiceProvider
	ShouldRegister(container *Nasc) bool
}

// ProviderError reports which provider failed and in which phase.
type ProviderError struct {
	Provider string
	Phase    string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed to %s: %v", e.Provider, e.Phase, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

type providerEntry struct {
	provider ServiceProvider
	name     string
	booted   bool
}

// RegisterProvider calls provider.Register. A provider type is registered at
// most once; later providers of the same type are ignored.
//
// Example:
//
//	container.RegisterProvider(&LoggingProvider{})
//	container.RegisterProvider(&DatabaseProvider{})
//	container.BootProviders()
func (n *Nasc) RegisterProvider(provider ServiceProvider) error {
	if provider == nil {
		return &InvalidBindingError{Reason: "provider cannot be nil"}
	}
	name := reflect.TypeOf(provider).String()

	if deferred, ok := provider.(DeferredProvider); ok && !deferred.ShouldRegister(n) {
		n.logger.Debug("provider skipped", "provider", name)
		return nil
	}

	n.mu.Lock()
	for _, entry := range n.providers {
		if entry.name == name {
			n.mu.Unlock()
			return nil
		}
	}
	entry := &providerEntry{provider: provider, name: name}
	n.providers = append(n.providers, entry)
	n.mu.Unlock()

	if err := provider.Register(n); err != nil {
		n.mu.Lock()
		n.providers = slices.DeleteFunc(n.providers, func(e *providerEntry) bool { return e == entry })
		n.mu.Unlock()
		return &ProviderError{Provider: name, Phase: "register", Cause: err}
	}

	n.logger.Debug("provider registered", "provider", name)
	return nil
}

// BootProviders boots every registered BootableProvider that has not been
// booted yet, in registration order. It stops at the first failure; the
// providers booted so far are not booted again on the next call.
func (n *Nasc) BootProviders() error {
	n.mu.Lock()
	pending := make([]*providerEntry, 0, len(n.providers))
	for _, entry := range n.providers {
		if !entry.booted {
			pending = append(pending, entry)
		}
	}
	n.mu.Unlock()

	for _, entry := range pending {
		bootable, ok := entry.provider.(BootableProvider)
		if !ok {
			continue
		}
		if err := bootable.Boot(n); err != nil {
			return &ProviderError{Provider: entry.name, Phase: "boot", Cause: err}
		}

		n.mu.Lock()
		entry.booted = true
		n.mu.Unlock()
		n.logger.Debug("provider booted", "provider", entry.name)
	}
	return nil
}

// Providers returns the registered providers in registration order.
func (n *Nasc) Providers() []ServiceProvider {
	n.mu.Lock()
	defer n.mu.Unlock()

	providers := make([]ServiceProvider, len(n.providers))
	for i, entry := range n.providers {
		providers[i] = entry.provider
	}
	return providers
}
