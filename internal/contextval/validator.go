// Package contextval extracts structured facts from raw user text against a
// fixed vocabulary and merges them, together with worker-proposed updates,
// into the session context.
package contextval

import (
	"context"
	"log"
	"strings"

	"github.com/agrovoice/agrovoice/pkg/session"
)

// Context keys written by the validator and workers.
const (
	KeyCropType       = "crop_type"
	KeyRegion         = "region"
	KeyLastFertilizer = "last_fertilizer"
	KeySoilStatus     = "soil_status"
	KeyLanguage       = "detected_language"
)

// Crops is the recognized crop vocabulary. Declaration order is the match
// order: the first entry found in the text wins.
var Crops = []string{
	"cabbage", "wheat", "rice", "maize", "corn", "potato", "tomato",
	"onion", "cotton", "sugarcane", "soybean", "barley", "millet",
	"chickpea", "lentil", "mustard", "groundnut", "sunflower",
}

// Regions is the recognized region vocabulary, in match order.
var Regions = []string{
	"punjab", "haryana", "maharashtra", "karnataka", "gujarat",
	"rajasthan", "bihar", "bengal", "kerala", "tamil nadu",
	"uttar pradesh", "madhya pradesh", "andhra pradesh",
}

// Validator merges extracted facts into session context.
type Validator struct {
	store *session.Store
}

// NewValidator creates a context validator over the session store.
func NewValidator(store *session.Store) *Validator {
	return &Validator{store: store}
}

// ValidateAndMerge scans rawText against the vocabularies, layers the
// worker-proposed updates on top (proposals win per key), writes the merged
// result into the session context, and returns the applied updates.
//
// A change of crop_type relative to the current context is a notable event
// and is logged, but never an error.
func (v *Validator) ValidateAndMerge(ctx context.Context, sessionID string, proposed map[string]string, rawText string, current map[string]string) (map[string]string, error) {
	applied := make(map[string]string)

	if crop := FirstMatch(rawText, Crops); crop != "" {
		applied[KeyCropType] = crop
	}
	if region := FirstMatch(rawText, Regions); region != "" {
		applied[KeyRegion] = region
	}

	// Worker-extracted facts overwrite vocabulary-derived values.
	for k, val := range proposed {
		if val != "" {
			applied[k] = val
		}
	}

	if len(applied) == 0 {
		return applied, nil
	}

	if newCrop, ok := applied[KeyCropType]; ok {
		if prev := current[KeyCropType]; prev != "" && prev != newCrop {
			log.Printf("session %s: crop changed %s -> %s", sessionID, prev, newCrop)
		}
	}

	if err := v.store.MergeContext(ctx, sessionID, applied); err != nil {
		return applied, err
	}
	return applied, nil
}

// FirstMatch returns the first vocabulary entry found in text using
// case-insensitive substring matching, or "" when none matches.
func FirstMatch(text string, vocabulary []string) string {
	lower := strings.ToLower(text)
	for _, entry := range vocabulary {
		if strings.Contains(lower, entry) {
			return entry
		}
	}
	return ""
}
