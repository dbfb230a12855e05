// Package metrics exposes Prometheus counters and histograms for analysis
// runs. All Record methods are safe to call on a nil *Collector, which makes
// metrics optional for every caller.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

const namespace = "sl"

// Collector owns the analysis metrics and the registry they are exposed from.
type Collector struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	findingsTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	ruleErrorsTotal  *prometheus.CounterVec
}

// NewCollector registers the analysis metrics on registry. A nil registry
// gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Analysis runs by final status.",
			},
			[]string{"status"},
		),
		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Processed findings by kind and severity.",
			},
			[]string{"kind", "severity"},
		),
		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Wall time of an analysis run.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		ruleErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_evaluation_errors_total",
				Help:      "Rule evaluations that panicked and were skipped, by engine.",
			},
			[]string{"engine"},
		),
	}

	registry.MustRegister(c.analysesTotal, c.findingsTotal, c.analysisDuration, c.ruleErrorsTotal)
	return c
}

// RecordAnalysis counts a finished run and observes its duration.
func (c *Collector) RecordAnalysis(status models.AnalysisStatus, d time.Duration) {
	if c == nil {
		return
	}
	c.analysesTotal.WithLabelValues(string(status)).Inc()
	c.analysisDuration.Observe(d.Seconds())
}

// RecordFindings counts findings by kind and severity.
func (c *Collector) RecordFindings(findings []models.ProcessedFinding) {
	if c == nil {
		return
	}
	for _, f := range findings {
		c.findingsTotal.WithLabelValues(string(f.Kind), string(f.Severity)).Inc()
	}
}

// RecordRuleErrors adds n skipped rule evaluations for engine.
func (c *Collector) RecordRuleErrors(engine string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ruleErrorsTotal.WithLabelValues(engine).Add(float64(n))
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
