package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/agrovoice/agrovoice/internal/llm"
)

const describePrompt = "Describe this photo of a plant or field for an agronomist. " +
	"Note the crop if identifiable, and any visible damage, discoloration, pests, or disease symptoms."

// OllamaDescriber is a Describer backed by an Ollama multimodal model.
type OllamaDescriber struct {
	provider *llm.OllamaProvider
	model    string
}

// NewOllamaDescriber creates an image describer using the given vision model.
func NewOllamaDescriber(provider *llm.OllamaProvider, model string) *OllamaDescriber {
	if model == "" {
		model = "llava"
	}
	return &OllamaDescriber{provider: provider, model: model}
}

// Describe summarizes the image via the multimodal generate API.
func (d *OllamaDescriber) Describe(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	encoded := base64.StdEncoding.EncodeToString(image)
	out, err := d.provider.CompleteWithImages(ctx, d.model, describePrompt, []string{encoded})
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return strings.TrimSpace(out), nil
}
