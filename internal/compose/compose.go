// Package compose assembles the final response prompt from the fixed,
// ordered section layout and turns it into the reply sent back to the user.
package compose

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agrovoice/agrovoice/internal/advisor"
	"github.com/agrovoice/agrovoice/internal/contextval"
	"github.com/agrovoice/agrovoice/internal/language"
	"github.com/agrovoice/agrovoice/internal/llm"
	"github.com/agrovoice/agrovoice/pkg/session"
)

// PromptInput carries everything the composer folds into the final prompt.
type PromptInput struct {
	Language language.Result
	History  []session.Message
	Context  map[string]string
	Worker   *advisor.Result
	UserText string
}

// Composer builds the final prompt and makes the closing completion call.
type Composer struct {
	completer llm.Completer
}

// NewComposer creates a composer over the given completion service.
func NewComposer(completer llm.Completer) *Composer {
	return &Composer{completer: completer}
}

// BuildPrompt serializes the sections in their fixed order, omitting empty
// ones: language directive, prior transcript, context summary, worker
// output, then the labeled user query. The section order never varies.
func BuildPrompt(in PromptInput) string {
	var sections []string

	if in.Language.Code != language.DefaultCode && in.Language.Name != "" {
		sections = append(sections, fmt.Sprintf("Respond entirely in %s.", in.Language.Name))
	}

	if transcript := formatHistory(in.History); transcript != "" {
		sections = append(sections, "Conversation so far:\n"+transcript)
	}

	if summary := formatContext(in.Context, in.UserText); summary != "" {
		sections = append(sections, "Known farmer context:\n"+summary)
	}

	if worker := formatWorker(in.Worker); worker != "" {
		sections = append(sections, "Specialist findings:\n"+worker)
	}

	sections = append(sections, "Farmer's question: "+in.UserText+
		"\n\nReply to the farmer in a warm, practical tone, grounded in the findings above.")

	return strings.Join(sections, "\n\n")
}

// Respond builds the prompt and generates the user-facing reply. When the
// completion service fails, the worker findings are serialized directly so
// the user still receives a best-effort answer.
func (c *Composer) Respond(ctx context.Context, in PromptInput) string {
	reply, err := c.completer.Complete(ctx, BuildPrompt(in))
	if err != nil {
		log.Printf("response composition failed, serving worker output: %v", err)
		return fallbackReply(in.Worker)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallbackReply(in.Worker)
	}
	return reply
}

// formatHistory serializes the entire prior transcript. The history is never
// truncated: later turns routinely refer back to early ones.
func formatHistory(history []session.Message) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Text))
	}
	return strings.Join(lines, "\n")
}

// formatContext summarizes the merged session context plus any crop named
// verbatim in the current message.
func formatContext(sessionContext map[string]string, userText string) string {
	var lines []string
	for _, key := range []string{
		contextval.KeyCropType, contextval.KeyRegion,
		contextval.KeyLastFertilizer, contextval.KeySoilStatus,
	} {
		if v := sessionContext[key]; v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", key, v))
		}
	}
	if crop := contextval.FirstMatch(userText, contextval.Crops); crop != "" {
		lines = append(lines, fmt.Sprintf("- crop mentioned in this message: %s", crop))
	}
	return strings.Join(lines, "\n")
}

func formatWorker(res *advisor.Result) string {
	if res == nil || len(res.Fields) == 0 {
		return ""
	}
	lines := make([]string, 0, len(res.Fields))
	for _, f := range res.Fields {
		if f.Value == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", f.Key, f.Value))
	}
	return strings.Join(lines, "\n")
}

func fallbackReply(res *advisor.Result) string {
	if text := formatWorker(res); text != "" {
		return text
	}
	return "I could not produce an answer right now. Please try again in a moment."
}
