package ai

import (
	"fmt"
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	// Hosted providers
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[name]; ok {
		return f(cfg), true
	}
	return nil, false
}

// NewRuntime is GetRuntime with an error for unknown providers.
func NewRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	rt, ok := GetRuntime(name, cfg)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q (supported: %v)", name, Providers())
	}
	return rt, nil
}

// Providers lists registered provider names in sorted order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RequiresAPIKey reports whether the provider needs a credential.
func RequiresAPIKey(provider string) bool {
	return provider != ProviderOllama
}

// init registers built-in runtimes.
func init() {
	for _, p := range []string{ProviderGemini, ProviderOpenAI, ProviderOpenRouter} {
		provider := p
		RegisterRuntime(provider, func(c RuntimeConfig) Runtime {
			return NewOpenAIClient(provider, c.APIKey, c.BaseURL, c.HTTPTimeout)
		})
	}
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout)
	})
}
