package fleet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by [Registry.Create] when no factory
// has been registered under the requested provider prefix.
var ErrProviderNotRegistered = errors.New("fleet: provider not registered")

// Factory constructs a TTS provider, typically reading credentials from the
// environment. It is only invoked for provider groups that actually have
// missing work, so an unconfigured provider does not block unrelated packs.
type Factory func() (tts.Provider, error)

// Registry maps pack directory prefixes (e.g. "elevenlabs", "ttsm") to
// provider factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register registers a provider factory under prefix (case-insensitive).
// Subsequent calls with the same prefix overwrite the previous registration.
func (r *Registry) Register(prefix string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(prefix)] = factory
}

// Create constructs the provider registered under prefix.
func (r *Registry) Create(prefix string) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(prefix)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, prefix)
	}
	return factory()
}
