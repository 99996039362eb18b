// Package media holds the transcription and image description collaborator
// contracts. Both are single-shot external transformations: the orchestrator
// keeps no state in them and they keep none for the orchestrator.
package media

import (
	"context"
)

// Transcriber converts an audio reference into text. Implementations must
// return a non-empty placeholder-safe string even when transcription fails;
// they never return empty text without an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// Describer summarizes image bytes as text.
type Describer interface {
	Describe(ctx context.Context, image []byte) (string, error)
}

// TranscriptionUnavailable is the placeholder text used when the
// transcription collaborator cannot produce output.
const TranscriptionUnavailable = "[inaudible audio]"
