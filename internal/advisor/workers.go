package advisor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agrovoice/agrovoice/internal/contextval"
	"github.com/agrovoice/agrovoice/internal/llm"
)

const cropPromptTemplate = `You are an agronomist advising a farmer on crop planning.

Farmer's message: %s
Known context: %s

Answer with exactly these labeled lines:
crop_type: <the crop being discussed, one or two words>
region: <the growing region if known, else unknown>
advice: <two or three sentences of practical planting advice>`

// CropPlanner answers planting and crop-selection questions. It asks the
// model for labeled key/value lines and parses them; when the reply has no
// parseable line it falls back to scanning the input against the crop
// vocabulary and reusing the region already in context.
type CropPlanner struct {
	completer llm.Completer
}

// NewCropPlanner creates the crop-planning worker.
func NewCropPlanner(completer llm.Completer) *CropPlanner {
	return &CropPlanner{completer: completer}
}

func (w *CropPlanner) Advise(ctx context.Context, in Input) (*Result, error) {
	reply, err := w.completer.Complete(ctx, fmt.Sprintf(cropPromptTemplate, in.Text, contextSummary(in.Context)))
	if err != nil {
		log.Printf("crop planner completion failed: %v", err)
		reply = ""
	}

	parsed := parseLabeledLines(reply)
	crop := parsed["crop_type"]
	region := parsed["region"]
	advice := parsed["advice"]

	if crop == "" {
		crop = contextval.FirstMatch(in.Text, contextval.Crops)
	}
	if region == "" || region == "unknown" {
		if prev := in.Context[contextval.KeyRegion]; prev != "" {
			region = prev
		} else {
			region = "unknown"
		}
	}
	if advice == "" {
		if reply != "" {
			advice = strings.TrimSpace(reply)
		} else {
			advice = fallbackAdvice
		}
	}

	res := &Result{
		Fields: []Field{
			{Key: "crop_type", Value: crop},
			{Key: "region", Value: region},
			{Key: "advice", Value: advice},
		},
		ContextUpdates: map[string]string{},
	}
	if crop != "" {
		res.ContextUpdates[contextval.KeyCropType] = crop
	}
	if region != "" && region != "unknown" {
		res.ContextUpdates[contextval.KeyRegion] = region
	}
	return res, nil
}

const fertilizerPromptTemplate = `You are an agronomist advising a farmer on fertilizer use.

Farmer's message: %s
Known context: %s

Give two or three sentences of practical fertilizer advice, naming products
and dosages where appropriate.`

// knownFertilizers is scanned against the input to record the last
// fertilizer the farmer mentioned. Declaration order is the match order.
var knownFertilizers = []string{
	"urea", "dap", "npk", "potash", "compost", "manure", "vermicompost",
	"ammonium sulfate", "superphosphate",
}

// FertilizerPlanner answers fertilizer and nutrient questions.
type FertilizerPlanner struct {
	completer llm.Completer
}

// NewFertilizerPlanner creates the fertilizer worker.
func NewFertilizerPlanner(completer llm.Completer) *FertilizerPlanner {
	return &FertilizerPlanner{completer: completer}
}

func (w *FertilizerPlanner) Advise(ctx context.Context, in Input) (*Result, error) {
	advice, err := w.completer.Complete(ctx, fmt.Sprintf(fertilizerPromptTemplate, in.Text, contextSummary(in.Context)))
	if err != nil {
		log.Printf("fertilizer planner completion failed: %v", err)
		advice = fallbackAdvice
	}
	advice = strings.TrimSpace(advice)
	if advice == "" {
		advice = fallbackAdvice
	}

	res := &Result{
		Fields: []Field{
			{Key: "advice", Value: advice},
		},
		ContextUpdates: map[string]string{},
	}
	if fert := contextval.FirstMatch(in.Text, knownFertilizers); fert != "" {
		res.Fields = append(res.Fields, Field{Key: "last_fertilizer", Value: fert})
		res.ContextUpdates[contextval.KeyLastFertilizer] = fert
	}
	return res, nil
}

const sustainabilityPromptTemplate = `You are an agronomist advising a farmer on soil health and sustainable practice.

Farmer's message: %s
Known context: %s

Give two or three sentences of practical soil-health advice.`

// SustainabilityWorker answers soil-condition questions and records a coarse
// soil status derived from the farmer's own wording.
type SustainabilityWorker struct {
	completer llm.Completer
}

// NewSustainabilityWorker creates the soil-health worker.
func NewSustainabilityWorker(completer llm.Completer) *SustainabilityWorker {
	return &SustainabilityWorker{completer: completer}
}

func (w *SustainabilityWorker) Advise(ctx context.Context, in Input) (*Result, error) {
	advice, err := w.completer.Complete(ctx, fmt.Sprintf(sustainabilityPromptTemplate, in.Text, contextSummary(in.Context)))
	if err != nil {
		log.Printf("sustainability worker completion failed: %v", err)
		advice = fallbackAdvice
	}
	advice = strings.TrimSpace(advice)
	if advice == "" {
		advice = fallbackAdvice
	}

	status := soilStatus(in.Text)
	return &Result{
		Fields: []Field{
			{Key: "advice", Value: advice},
			{Key: "soil_status", Value: status},
		},
		ContextUpdates: map[string]string{
			contextval.KeySoilStatus: status,
		},
	}, nil
}

// soilStatus maps the farmer's wording to a coarse status label.
func soilStatus(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "drying") || strings.Contains(lower, "dry"):
		return "dry"
	case strings.Contains(lower, "degraded") || strings.Contains(lower, "dead") || strings.Contains(lower, "eroded"):
		return "degraded"
	default:
		return "needs_attention"
	}
}

// parseLabeledLines extracts "key: value" lines from a model reply. Keys are
// lowercased; later duplicates win.
func parseLabeledLines(reply string) map[string]string {
	parsed := make(map[string]string)
	for _, line := range strings.Split(reply, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		parsed[key] = value
	}
	return parsed
}

func contextSummary(sessionContext map[string]string) string {
	if len(sessionContext) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(sessionContext))
	for _, key := range []string{
		contextval.KeyCropType, contextval.KeyRegion,
		contextval.KeyLastFertilizer, contextval.KeySoilStatus,
	} {
		if v := sessionContext[key]; v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
