package intent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agrovoice/agrovoice/internal/llm"
)

const classifyTemplate = `Classify the farmer's message into exactly one of these categories:

- crop_advice: what to plant, when to plant, crop selection, crop problems
- fertilizer: fertilizer choice, dosage, nutrients, feeding schedules
- soil_health: soil condition, soil degradation, sustainability practices
- faq: anything else, including general farming questions

Rules:
- If the message mentions soil or drying, answer soil_health.
- If the message mentions fertilizer or nutrients, answer fertilizer.
- Answer with the category name only, no explanation.

Known context: %s

Message: %s

Category:`

// Router classifies raw input into the intent taxonomy by delegating to the
// completion service and normalizing its reply. Keyword tie-break rules are
// applied deterministically so classification stays stable even when the
// model is unavailable or uncooperative.
type Router struct {
	completer llm.Completer
}

// NewRouter creates an intent router over the given completion service.
func NewRouter(completer llm.Completer) *Router {
	return &Router{completer: completer}
}

// Classify maps input text to a Label, consulting session context. A failed
// or malformed completion resolves to LabelFAQ.
func (r *Router) Classify(ctx context.Context, text string, sessionContext map[string]string) Label {
	if kw := keywordLabel(text); kw != "" {
		return kw
	}

	prompt := fmt.Sprintf(classifyTemplate, summarizeContext(sessionContext), text)
	raw, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("intent classification failed, using fallback: %v", err)
		return LabelFAQ
	}

	label := Normalize(raw)

	// The keyword rules gate these two labels: without a matching keyword in
	// the input they are a misclassification, not a signal.
	if (label == LabelSoilHealth || label == LabelFertilizer) && keywordLabel(text) == "" {
		log.Printf("classifier returned %q without matching keywords, using fallback", label)
		return LabelFAQ
	}
	return label
}

// VoiceClassification holds both stages of voice-input routing. Final is
// authoritative for dispatch; TranscriptOnly is retained for diagnostics.
type VoiceClassification struct {
	TranscriptOnly Label
	Final          Label
}

// ClassifyVoice performs two-stage routing for voice input: one
// classification from the transcription alone and one from the transcription
// concatenated with any accompanying typed text. The stages are independent,
// so they run concurrently.
func (r *Router) ClassifyVoice(ctx context.Context, transcript, typedText string, sessionContext map[string]string) VoiceClassification {
	combined := transcript
	if typedText != "" {
		combined = transcript + "\n" + typedText
	}

	var vc VoiceClassification
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vc.TranscriptOnly = r.Classify(gctx, transcript, sessionContext)
		return nil
	})
	g.Go(func() error {
		vc.Final = r.Classify(gctx, combined, sessionContext)
		return nil
	})
	_ = g.Wait()

	return vc
}

// keywordLabel applies the deterministic tie-break rules.
func keywordLabel(text string) Label {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "soil") || strings.Contains(lower, "drying"):
		return LabelSoilHealth
	case strings.Contains(lower, "fertilizer") || strings.Contains(lower, "nutrient"):
		return LabelFertilizer
	default:
		return ""
	}
}

func summarizeContext(sessionContext map[string]string) string {
	if len(sessionContext) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(sessionContext))
	for _, key := range []string{"crop_type", "region", "last_fertilizer", "soil_status"} {
		if v, ok := sessionContext[key]; ok && v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
