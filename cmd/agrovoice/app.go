package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agrovoice/agrovoice/internal/advisor"
	"github.com/agrovoice/agrovoice/internal/compose"
	"github.com/agrovoice/agrovoice/internal/contextval"
	"github.com/agrovoice/agrovoice/internal/engine"
	"github.com/agrovoice/agrovoice/internal/intent"
	"github.com/agrovoice/agrovoice/internal/language"
	"github.com/agrovoice/agrovoice/internal/lifecycle"
	"github.com/agrovoice/agrovoice/internal/llm"
	"github.com/agrovoice/agrovoice/internal/media"
	"github.com/agrovoice/agrovoice/internal/observability"
	"github.com/agrovoice/agrovoice/pkg/config"
	"github.com/agrovoice/agrovoice/pkg/session"
	"github.com/agrovoice/agrovoice/pkg/vectorindex"
)

// app holds the wired component graph shared by the CLI commands.
type app struct {
	cfg       *config.Config
	store     *session.Store
	engine    *engine.Engine
	lifecycle *lifecycle.Manager
}

// buildApp assembles the full pipeline from configuration.
func buildApp(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(backend, session.WithCreateHook(func(string) {
		observability.SessionsCreated.Inc()
	}))

	provider, err := llm.New(cfg.LLM.Provider, llm.Options{
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		BaseURL:        cfg.LLM.OllamaURL,
		APIKey:         cfg.LLM.OpenAIKey,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	probeOllama(provider)

	completer := llm.NewLimitedCompleter(provider, cfg.Server.RequestsPerSecond, cfg.Server.Burst)

	index, err := vectorindex.LoadCorpus(cfg.Knowledge.CorpusPath, cfg.Knowledge.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("load knowledge corpus: %w", err)
	}
	if index.Len() == 0 {
		log.Printf("knowledge corpus is empty; faq answers will be uncited")
	}

	whisper := media.NewWhisperClient(cfg.Media.WhisperURL)
	visionProvider, err := llm.NewOllamaProvider(llm.Options{
		Model:       cfg.Media.VisionModel,
		BaseURL:     cfg.LLM.OllamaURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create vision provider: %w", err)
	}
	describer := media.NewOllamaDescriber(visionProvider, cfg.Media.VisionModel)

	detector := language.NewDetector(whisper)
	router := intent.NewRouter(completer)
	validator := contextval.NewValidator(store)
	composer := compose.NewComposer(completer)

	workers := advisor.NewRegistry(
		advisor.NewCropPlanner(completer),
		advisor.NewFertilizerPlanner(completer),
		advisor.NewSustainabilityWorker(completer),
		advisor.NewKnowledgeWorker(completer, provider, index, cfg.Knowledge.TopK),
		advisor.NewDiagnosisWorker(completer, describer),
	)

	eng := engine.New(store, detector, whisper, router, workers, validator, composer)

	mgr := lifecycle.NewManager(store, lifecycle.Policy{
		MaxAge:        time.Duration(cfg.Lifecycle.MaxAgeDays) * 24 * time.Hour,
		MaxSessions:   cfg.Lifecycle.MaxSessions,
		SweepInterval: time.Duration(cfg.Lifecycle.SweepIntervalHours) * time.Hour,
	})

	return &app{cfg: cfg, store: store, engine: eng, lifecycle: mgr}, nil
}

func buildBackend(cfg *config.Config) (session.Backend, error) {
	switch cfg.Session.Store {
	case "redis":
		return session.NewRedisBackend(session.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
	default:
		return session.NewFileBackend(cfg.Session.BaseDir)
	}
}

// probeOllama logs a warning when the Ollama server is unreachable so a
// misconfigured endpoint is visible before the first request fails.
func probeOllama(provider llm.Provider) {
	p, ok := provider.(*llm.OllamaProvider)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !p.Available(ctx) {
		log.Printf("warning: ollama server is not reachable; completions will fall back to canned replies")
	}
}

func (a *app) close() {
	a.lifecycle.Stop()
	if err := a.store.Close(); err != nil {
		log.Printf("close session store: %v", err)
	}
}
