package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

func init() {
	Register("ollama", func(opts Options) (Provider, error) {
		return NewOllamaProvider(opts)
	})
}

// OllamaProvider implements Provider against the Ollama HTTP API.
type OllamaProvider struct {
	baseURL    string
	model      string
	embedModel string
	temp       float64
	maxTokens  int
	dims       int
	httpClient *http.Client
}

// NewOllamaProvider creates an Ollama-backed provider.
func NewOllamaProvider(opts Options) (*OllamaProvider, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      opts.Model,
		embedModel: opts.EmbeddingModel,
		temp:       opts.Temperature,
		maxTokens:  opts.MaxTokens,
		dims:       768,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string { return "ollama" }

// Complete generates text using Ollama's /api/generate endpoint.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	req := map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
	}

	options := map[string]any{}
	if p.maxTokens > 0 {
		options["num_predict"] = p.maxTokens
	}
	if p.temp > 0 {
		options["temperature"] = p.temp
	}
	if len(options) > 0 {
		req["options"] = options
	}

	var resp struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := p.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// CompleteWithImages generates text with base64-encoded images attached,
// using Ollama's multimodal generate API.
func (p *OllamaProvider) CompleteWithImages(ctx context.Context, model, prompt string, images []string) (string, error) {
	if model == "" {
		model = p.model
	}
	req := map[string]any{
		"model":  model,
		"prompt": prompt,
		"images": images,
		"stream": false,
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := p.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Embed generates an embedding using Ollama's /api/embeddings endpoint.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.embedModel
	if model == "" {
		model = p.model
	}
	req := map[string]any{
		"model":  model,
		"prompt": text,
	}

	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := p.post(ctx, "/api/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) > 0 {
		p.dims = len(resp.Embedding)
	}
	return resp.Embedding, nil
}

// Dimensions returns the embedding dimension observed from the server.
func (p *OllamaProvider) Dimensions() int { return p.dims }

// Available checks if the Ollama server is reachable.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func (p *OllamaProvider) post(ctx context.Context, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
