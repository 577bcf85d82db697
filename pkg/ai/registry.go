package ai

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProvider means no factory is registered for a provider kind.
var ErrUnknownProvider = errors.New("unknown ai provider")

// Provider kinds registered by DefaultRegistry.
const (
	KindOpenAICompatible = "openai_compatible"
	KindOllama           = "ollama"
	KindKimi             = "kimi"
)

// Factory builds a provider from an endpoint configuration.
type Factory func(Config) Provider

// Registry maps provider kinds to factories. Registration happens at
// process start; there is no runtime unregistration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with all built-in provider kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindOpenAICompatible, func(cfg Config) Provider { return NewOpenAICompatProvider(cfg) })
	r.Register(KindOllama, func(cfg Config) Provider { return NewOllamaProvider(cfg) })
	r.Register(KindKimi, func(cfg Config) Provider { return NewKimiProvider(cfg) })
	return r
}

// Register binds a kind to a factory, replacing any previous binding.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[strings.ToLower(strings.TrimSpace(kind))] = f
}

// Create instantiates a provider for the kind with the given configuration.
func (r *Registry) Create(kind string, cfg Config) (Provider, error) {
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownProvider, kind, strings.Join(r.Kinds(), ", "))
	}
	return f(cfg), nil
}

// Kinds lists all registered provider kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
