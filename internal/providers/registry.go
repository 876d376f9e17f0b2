package providers

import (
	"errors"
	"fmt"

	"github.com/pulsedash/pulsedash/internal/config"
)

// ErrNotConfigured is returned when a provider's client-credential env pair
// is absent. It fails the request, never the process.
var ErrNotConfigured = errors.New("providers: client credentials not configured")

// Registry holds the adapters whose credentials are present in the config.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry registers an adapter per configured provider.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	if cfg.Google.Configured() {
		r.adapters[KeyGoogle] = NewGoogle(cfg.Google.ID, cfg.Google.Secret)
	}
	if cfg.Meta.Configured() {
		r.adapters[KeyMeta] = NewMeta(cfg.Meta.ID, cfg.Meta.Secret)
	}
	if cfg.LinkedIn.Configured() {
		r.adapters[KeyLinkedIn] = NewLinkedIn(cfg.LinkedIn.ID, cfg.LinkedIn.Secret)
	}
	return r
}

// Register adds or replaces an adapter. Used by tests to install fakes.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Key()] = a
}

// Get returns the adapter for a provider key.
func (r *Registry) Get(key string) (Adapter, error) {
	a, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, key)
	}
	return a, nil
}

// ForFeature resolves an integration feature to its provider adapter.
func (r *Registry) ForFeature(feature string) (Adapter, error) {
	key, err := ProviderForFeature(feature)
	if err != nil {
		return nil, err
	}
	return r.Get(key)
}

// Configured reports whether a provider key has a registered adapter.
func (r *Registry) Configured(key string) bool {
	_, ok := r.adapters[key]
	return ok
}
