// Package intent classifies user input into a closed taxonomy of advisory
// intents. Classification is delegated to the completion service, but the
// mapping from raw model output to a label is a pure function with a safe
// default: nothing outside the taxonomy ever leaves this package.
package intent

import (
	"strings"
)

// Label is one of the closed enumeration of advisory intents.
type Label string

const (
	// LabelCropAdvice covers planting and crop selection questions.
	LabelCropAdvice Label = "crop_advice"
	// LabelFertilizer covers fertilizer and nutrient questions.
	LabelFertilizer Label = "fertilizer"
	// LabelSoilHealth covers soil condition and sustainability questions.
	LabelSoilHealth Label = "soil_health"
	// LabelFAQ is the default for everything else, including diagnosis of
	// malformed classifier output.
	LabelFAQ Label = "faq"
	// LabelDiagnosis is the image-modality intent; it is selected by
	// modality, never by the classifier.
	LabelDiagnosis Label = "plant_diagnosis"
)

// valid is the set of labels the classifier may produce.
var valid = map[Label]bool{
	LabelCropAdvice: true,
	LabelFertilizer: true,
	LabelSoilHealth: true,
	LabelFAQ:        true,
}

// Normalize maps unconstrained classifier output to a Label. The raw reply is
// trimmed, lowercased, and reduced to its first whitespace-delimited token;
// anything outside the enumeration, including empty output, resolves to
// LabelFAQ. This fallback is a correctness requirement: no invalid or empty
// label may propagate downstream.
func Normalize(raw string) Label {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return LabelFAQ
	}
	if fields := strings.Fields(raw); len(fields) > 0 {
		raw = fields[0]
	}
	// Models occasionally decorate the token with punctuation or quotes.
	raw = strings.Trim(raw, `"'.,:;`)

	label := Label(raw)
	if valid[label] {
		return label
	}
	return LabelFAQ
}
