// Package metrics provides Prometheus metrics for article processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeStored    = "stored"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

var (
	// ArticlesTotal counts processed articles by outcome.
	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "news_coverage",
			Name:      "articles_total",
			Help:      "Total number of processed articles",
		},
		[]string{"outcome"},
	)

	// StageDuration measures how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "news_coverage",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// FactsTotal counts emitted facts by section.
	FactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "news_coverage",
			Name:      "facts_total",
			Help:      "Total number of facts kept after the buyer guardrail",
		},
		[]string{"section"},
	)

	// GuardrailFallbackTotal counts articles whose facts were all dropped
	// and replaced by the fallback fact.
	GuardrailFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "news_coverage",
			Name:      "guardrail_fallback_total",
			Help:      "Total number of articles that fell back to a single fact",
		},
	)
)

func RecordArticle(outcome string) {
	ArticlesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the time since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func RecordFact(section string) {
	FactsTotal.WithLabelValues(section).Inc()
}

func RecordGuardrailFallback() {
	GuardrailFallbackTotal.Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
