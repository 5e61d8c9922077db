// File: internal/metrics/metrics.go
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

const namespace = "codesmith"

// Run outcomes.
const (
	OutcomeSaved       = "saved"
	OutcomeWriteFailed = "write_failed"
	OutcomeExhausted   = "retries_exhausted"
	OutcomeModelError  = "model_error"
	OutcomeAborted     = "aborted"
)

// Generation attempt kinds.
const (
	AttemptInitial  = "initial"
	AttemptRevision = "revision"
)

// Recorder owns the pipeline's Prometheus collectors. Every method is safe
// to call on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal               *prometheus.CounterVec
	GenerationAttemptsTotal *prometheus.CounterVec
	QAPassesTotal           *prometheus.CounterVec
	FindingsTotal           *prometheus.CounterVec
	AnalyzerUnavailable     *prometheus.CounterVec
	ModelCallDuration       *prometheus.HistogramVec
}

// New creates a Recorder with its own registry so tests and repeated runs
// never collide on the global default registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by terminal outcome",
		}, []string{"outcome"}),
		GenerationAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Code generation model calls by prompt kind",
		}, []string{"kind"}),
		QAPassesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "passes_total",
			Help:      "QA passes by result",
		}, []string{"result"}),
		FindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "findings_total",
			Help:      "QA findings by source and severity",
		}, []string{"source", "severity"}),
		AnalyzerUnavailable: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "analyzer_unavailable_total",
			Help:      "Analyzer invocations that could not run",
		}, []string{"analyzer"}),
		ModelCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Model inference latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"tier", "status"}),
	}
}

// Registry exposes the underlying registry for export.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordRun counts one finished run.
func (r *Recorder) RecordRun(outcome string) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(outcome).Inc()
}

// RecordGenerationAttempt counts one synthesizer model call.
func (r *Recorder) RecordGenerationAttempt(kind string) {
	if r == nil {
		return
	}
	r.GenerationAttemptsTotal.WithLabelValues(kind).Inc()
}

// RecordQAReport counts a QA pass and each of its findings.
func (r *Recorder) RecordQAReport(report *schemas.QAReport) {
	if r == nil || report == nil {
		return
	}
	result := "pass"
	if report.HasBlockingIssues() {
		result = "fail"
	}
	r.QAPassesTotal.WithLabelValues(result).Inc()
	for _, f := range report.Findings {
		r.FindingsTotal.WithLabelValues(f.Source, f.Severity.String()).Inc()
	}
}

// RecordAnalyzerUnavailable counts an analyzer that could not run.
func (r *Recorder) RecordAnalyzerUnavailable(analyzer string) {
	if r == nil {
		return
	}
	r.AnalyzerUnavailable.WithLabelValues(analyzer).Inc()
}

// Model call statuses.
const (
	CallOK      = "ok"
	CallTimeout = "timeout"
	CallError   = "error"
)

// RecordModelCall observes the latency of one inference call.
func (r *Recorder) RecordModelCall(tier schemas.ModelTier, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.ModelCallDuration.WithLabelValues(string(tier), status).Observe(d.Seconds())
}

// WriteTextfile writes all collected metrics in the Prometheus text format,
// for pickup by a node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
