package llm

import (
	"context"
	"sync"
)

// MockCompleter is a scripted Completer for tests. Each call records the
// prompt and returns the reply produced by Fn, or Reply when Fn is nil.
type MockCompleter struct {
	mu      sync.Mutex
	Prompts []string
	Reply   string
	Err     error
	Fn      func(prompt string) (string, error)
}

// Complete records the prompt and returns the scripted reply.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(prompt)
	}
	return m.Reply, m.Err
}

// LastPrompt returns the most recently recorded prompt, or "".
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

// MockEmbedder returns fixed-dimension embeddings derived from text length,
// or a scripted vector per input.
type MockEmbedder struct {
	Dims    int
	Vectors map[string][]float32
	Err     error
}

// Embed returns the scripted vector for text, or a deterministic filler.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, m.Dims)
	for i := range v {
		v[i] = float32((len(text)+i)%7) / 7
	}
	return v, nil
}

// Dimensions returns the configured dimension.
func (m *MockEmbedder) Dimensions() int { return m.Dims }
