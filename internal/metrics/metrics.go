/**
 * Prometheus metrics for text extraction
 *
 * Recorder implements the extractor's call observer and also counts worker
 * job outcomes.
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

const (
	namespace = "textextractor"

	// OutcomeOK labels calls that resolved.
	OutcomeOK = "ok"
)

// Recorder holds the collectors for one registry.
type Recorder struct {
	registry *prometheus.Registry

	callOps      *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	jobOps       *prometheus.CounterVec
	jobsActive   prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry. Go runtime and
// process collectors are registered alongside.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		callOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ocr",
				Name:      "call_ops_total",
				Help:      "The total number of recognition calls by outcome.",
			},
			[]string{"op", "platform", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ocr",
				Name:      "call_duration_seconds",
				Help:      "Time taken by a recognition call.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op", "platform"},
		),
		jobOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "job_ops_total",
				Help:      "The total number of queued jobs by final status.",
			},
			[]string{"status"},
		),
		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "jobs_active",
				Help:      "Number of jobs currently being processed.",
			},
		),
	}

	r.registry.MustRegister(
		r.callOps,
		r.callDuration,
		r.jobOps,
		r.jobsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// CallFinished records one finished extractor call. An empty code means the
// call resolved.
func (r *Recorder) CallFinished(op string, platform unified.Platform, code ocrerror.ErrorCode, duration time.Duration) {
	outcome := OutcomeOK
	if code != "" {
		outcome = string(code)
	}
	r.callOps.WithLabelValues(op, string(platform), outcome).Inc()
	r.callDuration.WithLabelValues(op, string(platform)).Observe(duration.Seconds())
}

// JobStarted marks a job as in progress.
func (r *Recorder) JobStarted() {
	r.jobsActive.Inc()
}

// JobFinished records the final status of a job.
func (r *Recorder) JobFinished(status string) {
	r.jobsActive.Dec()
	r.jobOps.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
