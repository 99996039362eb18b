package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovoice/agrovoice/internal/advisor"
	"github.com/agrovoice/agrovoice/internal/language"
	"github.com/agrovoice/agrovoice/internal/llm"
	"github.com/agrovoice/agrovoice/pkg/session"
)

func fullInput() PromptInput {
	return PromptInput{
		Language: language.Result{Code: "hi", Name: "Hindi"},
		History: []session.Message{
			{Role: session.RoleUser, Text: "my cabbage has holes"},
			{Role: session.RoleAssistant, Text: "check for caterpillars"},
		},
		Context: map[string]string{"crop_type": "cabbage", "region": "punjab"},
		Worker: &advisor.Result{Fields: []advisor.Field{
			{Key: "advice", Value: "use neem oil"},
		}},
		UserText: "what should I spray on my cabbage",
	}
}

func TestBuildPromptSectionOrder(t *testing.T) {
	prompt := BuildPrompt(fullInput())

	positions := []int{
		strings.Index(prompt, "Respond entirely in Hindi."),
		strings.Index(prompt, "Conversation so far:"),
		strings.Index(prompt, "Known farmer context:"),
		strings.Index(prompt, "Specialist findings:"),
		strings.Index(prompt, "Farmer's question:"),
	}
	for i, pos := range positions {
		require.GreaterOrEqual(t, pos, 0, "section %d missing from prompt", i)
		if i > 0 {
			assert.Greater(t, pos, positions[i-1], "section %d out of order", i)
		}
	}
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Language: language.Result{Code: language.DefaultCode, Name: "English"},
		UserText: "hello",
	})

	assert.NotContains(t, prompt, "Respond entirely in")
	assert.NotContains(t, prompt, "Conversation so far:")
	assert.NotContains(t, prompt, "Known farmer context:")
	assert.NotContains(t, prompt, "Specialist findings:")
	assert.Contains(t, prompt, "Farmer's question: hello")
}

func TestBuildPromptMentionsCropFromUserText(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		UserText: "my cabbage is wilting",
	})
	assert.Contains(t, prompt, "crop mentioned in this message: cabbage")
}

func TestBuildPromptIncludesFullTranscript(t *testing.T) {
	in := fullInput()
	in.History = nil
	for i := 0; i < 12; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		in.History = append(in.History, session.Message{Role: role, Text: fmt.Sprintf("turn-%02d", i)})
	}
	prompt := BuildPrompt(in)
	for i := 0; i < 12; i++ {
		assert.Contains(t, prompt, fmt.Sprintf("turn-%02d", i), "every prior turn must reach the prompt")
	}
}

func TestRespondUsesCompletion(t *testing.T) {
	mock := &llm.MockCompleter{Reply: "Spray neem oil weekly."}
	c := NewComposer(mock)

	got := c.Respond(context.Background(), fullInput())
	assert.Equal(t, "Spray neem oil weekly.", got)
	assert.Contains(t, mock.LastPrompt(), "Specialist findings:")
}

func TestRespondFallsBackToWorkerOutput(t *testing.T) {
	mock := &llm.MockCompleter{Err: errors.New("model offline")}
	c := NewComposer(mock)

	got := c.Respond(context.Background(), fullInput())
	assert.Contains(t, got, "use neem oil", "fallback must serialize worker findings")
}

func TestRespondFallsBackWithoutWorkerOutput(t *testing.T) {
	mock := &llm.MockCompleter{Reply: ""}
	c := NewComposer(mock)

	got := c.Respond(context.Background(), PromptInput{UserText: "hi"})
	assert.NotEmpty(t, got, "the user must always receive some text")
}
