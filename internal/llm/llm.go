// Package llm defines the generative completion and embedding contracts used
// by the orchestration engine, with Ollama and OpenAI providers behind a
// registry.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Completer is the generative completion service contract: one prompt string
// in, one text string out. Callers must treat an error or empty text as
// "no usable output" and apply their component-specific fallback.
type Completer interface {
	// Complete generates a text completion for the prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder generates fixed-dimension embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimension size of the embeddings.
	Dimensions() int
}

// Options holds provider settings shared by all implementations.
type Options struct {
	// Model is the completion model name.
	Model string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// APIKey authenticates hosted providers.
	APIKey string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxTokens caps generated tokens per completion.
	MaxTokens int
}

// Provider bundles completion and embedding for one backend.
type Provider interface {
	Completer
	Embedder

	// Name returns the provider name (e.g. "ollama", "openai").
	Name() string
}

// Factory creates a Provider from options.
type Factory func(opts Options) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a provider factory to the registry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("llm: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("llm: Register called twice for provider " + name)
	}
	registry[name] = factory
}

// New creates the named provider.
func New(name string, opts Options) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", name)
	}
	return factory(opts)
}
