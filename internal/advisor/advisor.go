// Package advisor implements the advice workers: one strategy per intent,
// each building a specialized prompt and making a single completion-service
// call. Workers never mutate the session; they return candidate context
// updates for the context validator to apply.
package advisor

import (
	"context"

	"github.com/agrovoice/agrovoice/internal/intent"
)

// Input is the uniform worker input.
type Input struct {
	// Text is the user's (possibly transcribed) message.
	Text string
	// Image carries raw image bytes for the diagnosis worker.
	Image []byte
	// Context is the session's current context mapping (read-only).
	Context map[string]string
}

// Field is one labeled output value. Order is meaningful: the composer
// serializes fields in the order the worker produced them.
type Field struct {
	Key   string
	Value string
}

// Result is the uniform worker output.
type Result struct {
	// Fields is the worker's structured output in serialization order.
	Fields []Field
	// ContextUpdates are candidate facts for the context validator.
	ContextUpdates map[string]string
	// Sources lists titles of retrieved documents (RAG worker only).
	Sources []string
}

// Worker turns classified input into a structured, domain-specific result
// via one completion call.
type Worker interface {
	Advise(ctx context.Context, in Input) (*Result, error)
}

// Registry is the tagged dispatch table mapping intents to workers. Adding
// an intent is a data change, not a control-flow change.
type Registry map[intent.Label]Worker

// For returns the worker for a label, falling back to the faq worker.
func (r Registry) For(label intent.Label) Worker {
	if w, ok := r[label]; ok {
		return w
	}
	return r[intent.LabelFAQ]
}

// fallbackAdvice is the placeholder used when the completion service yields
// no usable output.
const fallbackAdvice = "I could not generate advice right now. Please try again in a moment."

// NewRegistry wires the standard worker set for the full intent taxonomy.
func NewRegistry(crop *CropPlanner, fert *FertilizerPlanner, soil *SustainabilityWorker, faq *KnowledgeWorker, diag *DiagnosisWorker) Registry {
	return Registry{
		intent.LabelCropAdvice: crop,
		intent.LabelFertilizer: fert,
		intent.LabelSoilHealth: soil,
		intent.LabelFAQ:        faq,
		intent.LabelDiagnosis:  diag,
	}
}
