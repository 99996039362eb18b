// Package observability exposes Prometheus metrics and OpenTelemetry tracing
// for the orchestration engine.
package observability

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AnalyzeRequests counts Analyze calls by outcome ("ok" or "error").
	AnalyzeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrovoice_analyze_requests_total",
		Help: "Total Analyze requests by outcome.",
	}, []string{"outcome"})

	// AnalyzeDuration observes end-to-end Analyze latency.
	AnalyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agrovoice_analyze_duration_seconds",
		Help:    "End-to-end Analyze latency.",
		Buckets: prometheus.DefBuckets,
	})

	// IntentTotal counts classified intents by label and modality.
	IntentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrovoice_intents_total",
		Help: "Classified intents by label and input modality.",
	}, []string{"intent", "modality"})

	// SessionsCreated counts lazily created sessions.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agrovoice_sessions_created_total",
		Help: "Sessions created by first reference.",
	})

	// SessionsEvicted counts cleanup evictions by reason ("age" or "count").
	SessionsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrovoice_sessions_evicted_total",
		Help: "Sessions evicted by the lifecycle sweep, by reason.",
	}, []string{"reason"})

	// CollaboratorFailures counts degraded external calls by collaborator.
	CollaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrovoice_collaborator_failures_total",
		Help: "External collaborator failures absorbed by local fallbacks.",
	}, []string{"collaborator"})
)

// ServeMetrics starts the Prometheus scrape endpoint on addr. It returns the
// server so callers can shut it down; an empty addr disables metrics.
func ServeMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return srv
}
