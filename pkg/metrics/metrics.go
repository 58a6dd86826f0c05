// Package metrics exposes Prometheus metrics for exports, conversions and
// the conversion service.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/user/clipforge/pkg/pipeline"
)

// Result labels.
const (
	StatusOK          = "ok"
	StatusCancelled   = "cancelled"
	StatusUnsupported = "unsupported"
	StatusRemote      = "remote_error"
	StatusError       = "error"
)

// Export metrics
var (
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_exports_total",
			Help: "Total number of clip exports",
		},
		[]string{"strategy", "status"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_export_duration_seconds",
			Help:    "Clip export duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"strategy"},
	)

	StrategyFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_strategy_fallbacks_total",
			Help: "Total number of capture exports that fell back to transcode",
		},
	)

	ArtifactBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_artifact_bytes",
			Help:    "Size of produced artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(256<<10, 2, 10),
		},
		[]string{"mime"},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_conversions_total",
			Help: "Total number of container conversions",
		},
		[]string{"mode", "status"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_conversion_duration_seconds",
			Help:    "Container conversion duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_engine_loads_total",
			Help: "Total number of transcoding engine load attempts",
		},
		[]string{"status"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Status maps an export or conversion error to a result label.
func Status(err error) string {
	var remote *pipeline.RemoteServiceError
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, pipeline.ErrCancelled):
		return StatusCancelled
	case errors.Is(err, pipeline.ErrUnsupportedEnvironment):
		return StatusUnsupported
	case errors.As(err, &remote):
		return StatusRemote
	default:
		return StatusError
	}
}

// ObserveExport records one finished export.
func ObserveExport(strategy string, started time.Time, artifact pipeline.Artifact, err error) {
	ExportsTotal.WithLabelValues(strategy, Status(err)).Inc()
	ExportDuration.WithLabelValues(strategy).Observe(time.Since(started).Seconds())
	if err == nil {
		ArtifactBytes.WithLabelValues(artifact.MimeType).Observe(float64(artifact.Size()))
	}
}

// ObserveConversion records one finished conversion.
func ObserveConversion(mode string, started time.Time, err error) {
	ConversionsTotal.WithLabelValues(mode, Status(err)).Inc()
	ConversionDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}
