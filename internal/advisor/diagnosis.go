package advisor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agrovoice/agrovoice/internal/contextval"
	"github.com/agrovoice/agrovoice/internal/llm"
	"github.com/agrovoice/agrovoice/internal/media"
)

const diagnosisPromptTemplate = `You are a plant pathologist. A farmer sent a photo of a plant.

Image description: %s
Farmer's message: %s
Known context: %s

Answer with exactly these labeled lines:
crop_type: <the crop in the photo, one or two words, or unknown>
diagnosis: <two or three sentences describing the likely condition and treatment>`

// diagnosisUnavailable is the placeholder used when the vision collaborator
// cannot describe the image.
const diagnosisUnavailable = "I could not analyze the photo. Please try a clearer picture in good light."

// DiagnosisWorker handles the image modality: the vision collaborator
// describes the photo, then one completion call turns the description into a
// diagnosis. The crop named by the model is advisory and is not checked
// against the crop vocabulary.
type DiagnosisWorker struct {
	completer llm.Completer
	describer media.Describer
}

// NewDiagnosisWorker creates the plant-diagnosis worker.
func NewDiagnosisWorker(completer llm.Completer, describer media.Describer) *DiagnosisWorker {
	return &DiagnosisWorker{completer: completer, describer: describer}
}

func (w *DiagnosisWorker) Advise(ctx context.Context, in Input) (*Result, error) {
	description, err := w.describer.Describe(ctx, in.Image)
	if err != nil || strings.TrimSpace(description) == "" {
		if err != nil {
			log.Printf("image description failed: %v", err)
		}
		return &Result{
			Fields: []Field{
				{Key: "diagnosis", Value: diagnosisUnavailable},
			},
			ContextUpdates: map[string]string{},
		}, nil
	}

	prompt := fmt.Sprintf(diagnosisPromptTemplate, description, in.Text, contextSummary(in.Context))
	reply, err := w.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("diagnosis completion failed: %v", err)
		reply = ""
	}

	parsed := parseLabeledLines(reply)
	crop := parsed["crop_type"]
	diagnosis := parsed["diagnosis"]

	if crop == "" || strings.EqualFold(crop, "unknown") {
		crop = contextval.FirstMatch(description, contextval.Crops)
	}
	if diagnosis == "" {
		if reply != "" {
			diagnosis = strings.TrimSpace(reply)
		} else {
			diagnosis = diagnosisUnavailable
		}
	}

	res := &Result{
		Fields: []Field{
			{Key: "diagnosis", Value: diagnosis},
		},
		ContextUpdates: map[string]string{},
	}
	if crop != "" {
		res.Fields = append(res.Fields, Field{Key: "crop_type", Value: crop})
		res.ContextUpdates[contextval.KeyCropType] = crop
	}
	return res, nil
}
