package domain

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrAdapterExists   = errors.New("domain adapter already registered")
	ErrAdapterNotFound = errors.New("domain adapter not found")
	ErrAdapterConfig   = errors.New("invalid domain adapter config")
)

func errConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrAdapterConfig, msg)
}

// Factory constructs a fresh adapter instance for one trial. Each trial gets
// its own instance so no state can leak across trial boundaries.
type Factory func() (Adapter, error)

var adapterRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

// Register makes a domain available to the trial runner under its name.
func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("domain name is required")
	}
	if factory == nil {
		return errors.New("domain factory is required")
	}

	adapterRegistry.mu.Lock()
	defer adapterRegistry.mu.Unlock()

	if _, exists := adapterRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterExists, name)
	}
	adapterRegistry.m[name] = factory
	return nil
}

// Resolve builds a fresh adapter for the named domain and validates its
// configuration before any trial work starts.
func Resolve(name string) (Adapter, error) {
	adapterRegistry.mu.RLock()
	factory, ok := adapterRegistry.m[name]
	adapterRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	adapter, err := factory()
	if err != nil {
		return nil, fmt.Errorf("construct adapter %s: %w", name, err)
	}
	if err := validateConfig(adapter.Config()); err != nil {
		return nil, fmt.Errorf("adapter %s: %w", name, err)
	}
	return adapter, nil
}

// List returns registered domain names in sorted order.
func List() []string {
	adapterRegistry.mu.RLock()
	defer adapterRegistry.mu.RUnlock()

	names := make([]string, 0, len(adapterRegistry.m))
	for name := range adapterRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults registers the built-in reference domains. Idempotent, so
// every client init can call it.
func RegisterDefaults() error {
	defaults := map[string]Factory{
		"sphere":     func() (Adapter, error) { return NewSphere(DefaultSphereConfig()), nil },
		"archsearch": func() (Adapter, error) { return NewArchSearch(DefaultArchSearchConfig()), nil },
	}
	for name, factory := range defaults {
		if err := Register(name, factory); err != nil && !errors.Is(err, ErrAdapterExists) {
			return err
		}
	}
	return nil
}

func resetRegistryForTests() {
	adapterRegistry.mu.Lock()
	defer adapterRegistry.mu.Unlock()
	adapterRegistry.m = make(map[string]Factory)
}
