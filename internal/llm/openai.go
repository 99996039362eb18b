package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

func init() {
	Register("openai", func(opts Options) (Provider, error) {
		return NewOpenAIProvider(opts)
	})
}

// OpenAIClient is the subset of the go-openai client used here, extracted for
// testability.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIProvider implements Provider using the OpenAI API.
type OpenAIProvider struct {
	client     OpenAIClient
	model      string
	embedModel string
	temp       float64
	maxTokens  int
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	embedModel := opts.EmbeddingModel
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		embedModel: embedModel,
		temp:       opts.Temperature,
		maxTokens:  opts.MaxTokens,
	}, nil
}

// NewOpenAIProviderWithClient creates a provider with a custom client
// (useful for testing).
func NewOpenAIProviderWithClient(client OpenAIClient, opts Options) *OpenAIProvider {
	return &OpenAIProvider{
		client:     client,
		model:      opts.Model,
		embedModel: opts.EmbeddingModel,
		temp:       opts.Temperature,
		maxTokens:  opts.MaxTokens,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete generates a chat completion for the prompt.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(p.temp),
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embedModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the embedding dimension for the configured model.
func (p *OpenAIProvider) Dimensions() int {
	if p.embedModel == string(openai.LargeEmbedding3) {
		return 3072
	}
	return 1536
}
