// Package engine is the orchestration core: it fans one Analyze request
// through modality resolution, language detection, intent routing, advice
// generation, context merging, and response composition, then commits the
// turn to the session transcript.
package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/agrovoice/agrovoice/internal/advisor"
	"github.com/agrovoice/agrovoice/internal/compose"
	"github.com/agrovoice/agrovoice/internal/contextval"
	"github.com/agrovoice/agrovoice/internal/intent"
	"github.com/agrovoice/agrovoice/internal/language"
	"github.com/agrovoice/agrovoice/internal/media"
	"github.com/agrovoice/agrovoice/internal/observability"
	"github.com/agrovoice/agrovoice/pkg/session"
)

// ErrEmptyRequest is returned when a request carries no modality at all.
var ErrEmptyRequest = errors.New("request carries no text, audio, or image")

// Modality identifies which input the engine acted on. When several are
// present, precedence is image over voice over text.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
	ModalityImage Modality = "image"
)

// Request is one Analyze call.
type Request struct {
	SessionID string
	Text      string
	AudioRef  string
	Image     []byte
}

// Reply is the engine's answer for one request.
type Reply struct {
	ResponseText string
	Intent       intent.Label
	Modality     Modality
	Language     language.Result
	Transcript   string
}

// Engine wires the pipeline components together.
type Engine struct {
	store       *session.Store
	detector    *language.Detector
	transcriber media.Transcriber
	router      *intent.Router
	workers     advisor.Registry
	validator   *contextval.Validator
	composer    *compose.Composer
}

// New creates an engine over the given components.
func New(store *session.Store, detector *language.Detector, transcriber media.Transcriber,
	router *intent.Router, workers advisor.Registry, validator *contextval.Validator,
	composer *compose.Composer) *Engine {
	return &Engine{
		store:       store,
		detector:    detector,
		transcriber: transcriber,
		router:      router,
		workers:     workers,
		validator:   validator,
		composer:    composer,
	}
}

// Analyze runs the full pipeline for one request. Collaborator failures
// degrade to local fallbacks; the only request-level errors are an empty
// request and a session-store failure.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := observability.StartSpan(ctx, "engine.Analyze")
	defer span.End()
	start := time.Now()

	modality := resolveModality(req)
	if modality == "" {
		observability.AnalyzeRequests.WithLabelValues("error").Inc()
		return nil, ErrEmptyRequest
	}

	// Lazy session materialization: the snapshot taken here is the prior
	// transcript that the composer sees.
	snap, err := e.store.Get(ctx, req.SessionID)
	if err != nil {
		observability.AnalyzeRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	reply, err := e.analyzeTurn(ctx, req, modality, snap)
	observability.AnalyzeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.AnalyzeRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.AnalyzeRequests.WithLabelValues("ok").Inc()
	observability.IntentTotal.WithLabelValues(string(reply.Intent), string(modality)).Inc()
	return reply, nil
}

func (e *Engine) analyzeTurn(ctx context.Context, req Request, modality Modality, snap *session.Snapshot) (*Reply, error) {
	var (
		lang       language.Result
		label      intent.Label
		userText   string
		transcript string
	)

	switch modality {
	case ModalityVoice:
		transcript = e.transcribe(ctx, req.AudioRef)
		lang = e.detector.DetectFromAudio(ctx, req.AudioRef)
		if lang.Method == language.MethodFallback && transcript != media.TranscriptionUnavailable {
			lang = e.detector.DetectFromText(transcript)
		}
		vc := e.router.ClassifyVoice(ctx, transcript, req.Text, snap.Meta.Context)
		label = vc.Final
		if vc.TranscriptOnly != vc.Final {
			log.Printf("session %s: voice intent revised %s -> %s", req.SessionID, vc.TranscriptOnly, vc.Final)
		}
		userText = transcript
		if req.Text != "" {
			userText = transcript + "\n" + req.Text
		}

	case ModalityImage:
		// Image input always means diagnosis; the classifier is not consulted.
		label = intent.LabelDiagnosis
		userText = req.Text
		if userText == "" {
			userText = "What is wrong with this plant?"
		}
		lang = e.detector.DetectFromText(req.Text)

	default:
		userText = req.Text
		lang = e.detector.DetectFromText(req.Text)
		label = e.router.Classify(ctx, req.Text, snap.Meta.Context)
	}

	worker := e.workers.For(label)
	result, err := worker.Advise(ctx, advisor.Input{
		Text:    userText,
		Image:   req.Image,
		Context: snap.Meta.Context,
	})
	if err != nil {
		// Workers absorb their own collaborator failures; an error here is
		// unexpected but still must not fail the request.
		log.Printf("worker %s failed: %v", label, err)
		result = &advisor.Result{}
	}

	proposed := make(map[string]string, len(result.ContextUpdates)+1)
	for k, v := range result.ContextUpdates {
		proposed[k] = v
	}
	proposed[contextval.KeyLanguage] = lang.Code

	merged, err := e.validator.ValidateAndMerge(ctx, req.SessionID, proposed, userText, snap.Meta.Context)
	if err != nil {
		log.Printf("session %s: context merge not persisted: %v", req.SessionID, err)
	}
	effectiveContext := snap.Meta.Clone().Context
	if effectiveContext == nil {
		effectiveContext = make(map[string]string)
	}
	for k, v := range merged {
		effectiveContext[k] = v
	}

	responseText := e.composer.Respond(ctx, compose.PromptInput{
		Language: lang,
		History:  messagesOf(snap),
		Context:  effectiveContext,
		Worker:   result,
		UserText: userText,
	})

	// Commit the turn: user message then assistant message, both under the
	// same per-session lock discipline as any other append. A persistence
	// failure is logged but the reply is still served from memory state.
	if _, err := e.store.Append(ctx, req.SessionID, session.RoleUser, userText); err != nil {
		log.Printf("session %s: append user message: %v", req.SessionID, err)
	}
	if _, err := e.store.Append(ctx, req.SessionID, session.RoleAssistant, responseText); err != nil {
		log.Printf("session %s: append assistant message: %v", req.SessionID, err)
	}

	return &Reply{
		ResponseText: responseText,
		Intent:       label,
		Modality:     modality,
		Language:     lang,
		Transcript:   transcript,
	}, nil
}

// transcribe wraps the transcription collaborator with failure accounting.
// The returned text is always non-empty.
func (e *Engine) transcribe(ctx context.Context, audioRef string) string {
	text, err := e.transcriber.Transcribe(ctx, audioRef)
	if err != nil {
		observability.CollaboratorFailures.WithLabelValues("transcription").Inc()
		log.Printf("transcription degraded: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return media.TranscriptionUnavailable
	}
	return text
}

// resolveModality applies the precedence image > voice > text.
func resolveModality(req Request) Modality {
	switch {
	case len(req.Image) > 0:
		return ModalityImage
	case req.AudioRef != "":
		return ModalityVoice
	case strings.TrimSpace(req.Text) != "":
		return ModalityText
	default:
		return ""
	}
}

func messagesOf(snap *session.Snapshot) []session.Message {
	out := make([]session.Message, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		out = append(out, *m)
	}
	return out
}
