// Package metrics holds the Prometheus metrics of the share pipeline.
package metrics

import (
	"strconv"
	"time"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the share pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Share requests by method and final status
	Shares *prometheus.CounterVec

	// Share request duration by method
	ShareDuration *prometheus.HistogramVec

	// Photos excluded from a share, by reason
	PhotosFailed *prometheus.CounterVec

	// Bytes handed to share surfaces
	BytesShared prometheus.Counter

	// Compression results by accepted ladder rung ("none" when unreachable)
	Compressions *prometheus.CounterVec

	// Image fetch latency by status
	FetchLatency *prometheus.HistogramVec
}

// New creates and registers the metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Shares: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photoshare_shares_total",
				Help: "Total number of share requests by method and status",
			},
			[]string{"method", "status"},
		),

		ShareDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "photoshare_share_duration_seconds",
				Help:    "Share request duration in seconds, including user interaction",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"method"},
		),

		PhotosFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photoshare_photos_failed_total",
				Help: "Photos excluded from a share by reason",
			},
			[]string{"reason"},
		),

		BytesShared: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "photoshare_bytes_shared_total",
				Help: "Total bytes handed to share surfaces",
			},
		),

		Compressions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photoshare_compressions_total",
				Help: "Byte-budget compressions by accepted ladder rung",
			},
			[]string{"rung"},
		),

		FetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "photoshare_fetch_duration_seconds",
				Help: "Image fetch latency in seconds",
				Buckets: []float64{
					0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
				},
			},
			[]string{"status"}, // "success" or "error"
		),
	}
}

// RecordOutcome records a finished share request.
func (m *Metrics) RecordOutcome(o photoshare.ShareOutcome, d time.Duration) {
	if m == nil {
		return
	}
	m.Shares.WithLabelValues(string(o.Method), string(o.Status)).Inc()
	m.ShareDuration.WithLabelValues(string(o.Method)).Observe(d.Seconds())
}

// RecordFailedPhoto records a photo excluded from a share.
func (m *Metrics) RecordFailedPhoto(reason photoshare.Reason) {
	if m == nil {
		return
	}
	if reason == photoshare.ReasonNone {
		reason = "unknown"
	}
	m.PhotosFailed.WithLabelValues(string(reason)).Inc()
}

// RecordBytes records bytes handed to a share surface.
func (m *Metrics) RecordBytes(n int64) {
	if m == nil {
		return
	}
	m.BytesShared.Add(float64(n))
}

// RecordCompression records the accepted ladder rung, or -1 when the budget was unreachable.
func (m *Metrics) RecordCompression(rung int) {
	if m == nil {
		return
	}
	label := "none"
	if rung >= 0 {
		label = strconv.Itoa(rung)
	}
	m.Compressions.WithLabelValues(label).Inc()
}

// RecordFetch records a completed image fetch with its latency and status
func (m *Metrics) RecordFetch(durationSeconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.FetchLatency.WithLabelValues(status).Observe(durationSeconds)
}
