package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all available providers
type Registry struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	priorities    map[string]int
	enabledStatus map[string]bool
	configs       map[string]map[string]interface{}
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers:     make(map[string]Provider),
		priorities:    make(map[string]int),
		enabledStatus: make(map[string]bool),
		configs:       make(map[string]map[string]interface{}),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(name string, provider Provider, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	if err := ValidateCapabilities(provider.Capabilities()); err != nil {
		return fmt.Errorf("invalid provider capabilities for %s: %w", name, err)
	}

	r.providers[name] = provider
	r.priorities[name] = priority
	r.enabledStatus[name] = false // Disabled by default

	return nil
}

// Get returns a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	return provider, exists
}

// Enabled returns an enabled provider by name.
func (r *Registry) Enabled(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists || !r.enabledStatus[name] {
		return nil, false
	}
	return provider, true
}

// List returns all registered providers
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	r.sortByPriority(names)
	return names
}

// EnabledNames returns the enabled providers in priority order.
func (r *Registry) EnabledNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name, enabled := range r.enabledStatus {
		if enabled {
			names = append(names, name)
		}
	}
	r.sortByPriority(names)
	return names
}

// sortByPriority orders names by descending priority, then name. Callers
// hold mu.
func (r *Registry) sortByPriority(names []string) {
	sort.Slice(names, func(i, j int) bool {
		pi, pj := r.priorities[names[i]], r.priorities[names[j]]
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
}

// Discoverers returns the enabled providers exposing dynamic lists, in
// priority order.
func (r *Registry) Discoverers() []Discoverer {
	var out []Discoverer
	for _, name := range r.EnabledNames() {
		p, _ := r.Get(name)
		if d, ok := p.(Discoverer); ok {
			out = append(out, d)
		}
	}
	return out
}

// Enable enables a provider
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, exists := r.providers[name]
	if !exists {
		return fmt.Errorf("provider %s not found", name)
	}

	if provider.Capabilities().RequiresAuth {
		if config, hasConfig := r.configs[name]; !hasConfig || len(config) == 0 {
			return fmt.Errorf("provider %s requires configuration", name)
		}
	}

	r.enabledStatus[name] = true
	return nil
}

// Disable disables a provider
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabledStatus[name] = false
}

// Configure sets configuration for a provider
func (r *Registry) Configure(name string, config map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, exists := r.providers[name]
	if !exists {
		return fmt.Errorf("provider %s not found", name)
	}

	if err := provider.Configure(config); err != nil {
		return fmt.Errorf("failed to configure provider %s: %w", name, err)
	}

	r.configs[name] = config

	return nil
}

// Usage returns the budget usage of the named provider, or 0 when it is not
// enabled.
func (r *Registry) Usage(name string) float64 {
	p, ok := r.Enabled(name)
	if !ok {
		return 0
	}
	return p.Usage()
}

// GlobalUsage returns the highest usage across enabled providers.
func (r *Registry) GlobalUsage() float64 {
	var max float64
	for _, name := range r.EnabledNames() {
		if u := r.Usage(name); u > max {
			max = u
		}
	}
	return max
}
