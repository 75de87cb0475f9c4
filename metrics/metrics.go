// Package metrics exposes the scanner's own operational counters as
// Prometheus collectors, grounded on
// cmd/aleutian/internal/diagnostics/metrics.go's PrometheusDiagnosticsMetrics:
// a namespaced set of CounterVec, Counter and Histogram collectors registered once at
// startup and incremented from the orchestrator as scans run. There is
// no scrape server here — a short-lived CLI invocation has no one to
// scrape it — so `soc2scan metrics` renders the registry's current
// values as Prometheus text exposition format to stdout instead of
// serving /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "soc2scan"

// Registry holds every collector the orchestrator reports against.
// Construct one with New and share it across a single process; there
// is no global registry, so concurrent or repeated scans in tests
// don't collide on registration.
type Registry struct {
	reg *prometheus.Registry

	FilesScanned    *prometheus.CounterVec
	ViolationsFound *prometheus.CounterVec
	LLMCalls        prometheus.Counter
	LLMCostUSD      prometheus.Counter
	ScanDuration    prometheus.Histogram
}

// New builds and registers a fresh Registry.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		FilesScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_scanned_total",
				Help:      "Total number of files walked during a scan, by scan mode.",
			},
			[]string{"mode"},
		),
		ViolationsFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_found_total",
				Help:      "Total number of violations recorded, by severity.",
			},
			[]string{"severity"},
		),
		LLMCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "Total number of LLM analysis/fix-generation calls made.",
			},
		),
		LLMCostUSD: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_cost_usd_total",
				Help:      "Total estimated LLM spend across every scan, in US dollars.",
			},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Wall-clock duration of a full scan run.",
				Buckets:   []float64{1, 5, 15, 30, 60, 180, 600},
			},
		),
	}
	r.reg.MustRegister(r.FilesScanned, r.ViolationsFound, r.LLMCalls, r.LLMCostUSD, r.ScanDuration)
	return r
}

// Gatherer exposes the underlying registry for text-format rendering.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
