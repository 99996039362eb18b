// Package language identifies the language of text and audio input, with a
// guaranteed fallback to English for empty input, detection failures, and
// unsupported languages.
package language

import (
	"context"
	"log"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Confidence grades a detection result.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Method records how a result was produced.
type Method string

const (
	MethodText     Method = "text_detection"
	MethodAudio    Method = "audio_detection"
	MethodFallback Method = "fallback"
)

// Result is always produced, never absent: an unsupported or undetectable
// language falls back to the default with low confidence.
type Result struct {
	Code       string
	Name       string
	Confidence Confidence
	Method     Method
}

// DefaultCode is the fallback language.
const DefaultCode = "en"

// supported maps ISO 639-1 codes to display names. Detected languages outside
// this table fall back to the default.
var supported = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"ur": "Urdu",
	"bn": "Bengali",
	"pa": "Punjabi",
}

var linguaLanguages = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.French, lingua.German,
	lingua.Italian, lingua.Portuguese, lingua.Russian, lingua.Chinese,
	lingua.Japanese, lingua.Korean, lingua.Arabic, lingua.Hindi,
	lingua.Urdu, lingua.Bengali, lingua.Punjabi,
}

// AudioIdentifier is the audio language identification collaborator: it
// returns an ISO 639-1 code for the referenced audio.
type AudioIdentifier interface {
	IdentifyLanguage(ctx context.Context, audioRef string) (string, error)
}

// Detector identifies languages from text (locally, via lingua) and audio
// (via an external identifier), validating every result against the
// supported-language table.
type Detector struct {
	text  lingua.LanguageDetector
	audio AudioIdentifier
}

// NewDetector creates a detector. audio may be nil, in which case audio
// detection always falls back to the default language.
func NewDetector(audio AudioIdentifier) *Detector {
	return &Detector{
		text: lingua.NewLanguageDetectorBuilder().
			FromLanguages(linguaLanguages...).
			Build(),
		audio: audio,
	}
}

// DetectFromText identifies the language of the given text.
func (d *Detector) DetectFromText(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackResult()
	}

	lang, ok := d.text.DetectLanguageOf(text)
	if !ok {
		return fallbackResult()
	}

	code := strings.ToLower(lang.IsoCode639_1().String())
	name, ok := supported[code]
	if !ok {
		log.Printf("detected language %q not supported, using fallback", code)
		return fallbackResult()
	}

	return Result{Code: code, Name: name, Confidence: ConfidenceHigh, Method: MethodText}
}

// DetectFromAudio identifies the language of the referenced audio.
func (d *Detector) DetectFromAudio(ctx context.Context, audioRef string) Result {
	if audioRef == "" || d.audio == nil {
		return fallbackResult()
	}

	code, err := d.audio.IdentifyLanguage(ctx, audioRef)
	if err != nil {
		log.Printf("audio language detection failed: %v", err)
		return fallbackResult()
	}

	code = strings.ToLower(strings.TrimSpace(code))
	name, ok := supported[code]
	if !ok {
		return fallbackResult()
	}

	return Result{Code: code, Name: name, Confidence: ConfidenceHigh, Method: MethodAudio}
}

// IsSupported reports whether a language code is in the supported table.
func IsSupported(code string) bool {
	_, ok := supported[code]
	return ok
}

// Name returns the display name for a supported language code, or "".
func Name(code string) string {
	return supported[code]
}

func fallbackResult() Result {
	return Result{
		Code:       DefaultCode,
		Name:       supported[DefaultCode],
		Confidence: ConfidenceLow,
		Method:     MethodFallback,
	}
}
