// Package rfbmetrics exposes Prometheus metrics for vncrpcd: per-target
// connection state, wire traffic volume, rectangle decode counts per
// encoding, handshake outcomes, and framebuffer update latency.
package rfbmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "vncrpcd"
	subsystem = "rfb"
)

// Label names for RFB metrics.
const (
	labelTarget   = "target"
	labelEncoding = "encoding"
	labelOutcome  = "outcome"
)

// -------------------------------------------------------------------------
// Collector — Prometheus RFB Metrics
// -------------------------------------------------------------------------

// Collector holds all RFB Prometheus metrics.
//
// Metrics are designed for operating a fleet of VNC connections:
//   - Connections gauges track currently live connections per target.
//   - Byte counters track wire traffic volume per target.
//   - Rectangle counters track decoded rectangles per encoding, useful
//     for spotting a server that fell back to an unexpectedly
//     bandwidth-heavy encoding.
//   - Handshake outcome counters record connect/auth results for
//     alerting on a target that stopped authenticating.
//   - FramebufferUpdateLatency histograms record the time between a
//     FramebufferUpdateRequest and its matching commit.
type Collector struct {
	// Connections tracks the number of currently live connections per
	// target. Incremented on ConnectionMade, decremented on close.
	Connections *prometheus.GaugeVec

	// BytesRead counts bytes read off the wire per target.
	BytesRead *prometheus.CounterVec

	// RectanglesDecoded counts decoded rectangles per target and
	// encoding (spec.md §4.4).
	RectanglesDecoded *prometheus.CounterVec

	// HandshakeOutcomes counts handshake completions per target and
	// outcome ("success", "auth_failed", "error").
	HandshakeOutcomes *prometheus.CounterVec

	// AuthFailures counts authentication rejections per target.
	AuthFailures *prometheus.CounterVec

	// FramebufferUpdateLatency observes the time from a
	// FramebufferUpdateRequest to its CommitUpdate, per target.
	FramebufferUpdateLatency *prometheus.HistogramVec
}

// NewCollector creates a Collector with all RFB metrics registered against
// the provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
//
// All metrics are created with the "vncrpcd_rfb_" prefix (namespace_subsystem)
// to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Connections,
		c.BytesRead,
		c.RectanglesDecoded,
		c.HandshakeOutcomes,
		c.AuthFailures,
		c.FramebufferUpdateLatency,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	targetLabels := []string{labelTarget}
	encodingLabels := []string{labelTarget, labelEncoding}
	outcomeLabels := []string{labelTarget, labelOutcome}

	return &Collector{
		Connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections",
			Help:      "Number of currently live RFB connections.",
		}, targetLabels),

		BytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_read_total",
			Help:      "Total bytes read from the RFB connection.",
		}, targetLabels),

		RectanglesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rectangles_decoded_total",
			Help:      "Total framebuffer rectangles decoded, by encoding.",
		}, encodingLabels),

		HandshakeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handshake_outcomes_total",
			Help:      "Total handshake attempts, by outcome.",
		}, outcomeLabels),

		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_failures_total",
			Help:      "Total authentication rejections.",
		}, targetLabels),

		FramebufferUpdateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "framebuffer_update_latency_seconds",
			Help:      "Time from a FramebufferUpdateRequest to its matching commit.",
			Buckets:   prometheus.DefBuckets,
		}, targetLabels),
	}
}

// -------------------------------------------------------------------------
// Connection Lifecycle
// -------------------------------------------------------------------------

// RegisterConnection increments the active connections gauge for target.
// Called when ConnectionMade fires.
func (c *Collector) RegisterConnection(target string) {
	c.Connections.WithLabelValues(target).Inc()
}

// UnregisterConnection decrements the active connections gauge for
// target. Called when the connection closes.
func (c *Collector) UnregisterConnection(target string) {
	c.Connections.WithLabelValues(target).Dec()
}

// -------------------------------------------------------------------------
// Wire Traffic
// -------------------------------------------------------------------------

// AddBytesRead adds n to the bytes-read counter for target.
func (c *Collector) AddBytesRead(target string, n int) {
	c.BytesRead.WithLabelValues(target).Add(float64(n))
}

// IncRectanglesDecoded increments the decoded-rectangles counter for
// target and encoding (spec.md §4.4's encoding names, e.g. "Raw",
// "Hextile", "ZRLE").
func (c *Collector) IncRectanglesDecoded(target, encoding string) {
	c.RectanglesDecoded.WithLabelValues(target, encoding).Inc()
}

// -------------------------------------------------------------------------
// Handshake / Authentication
// -------------------------------------------------------------------------

// RecordHandshakeOutcome increments the handshake-outcomes counter for
// target and outcome.
func (c *Collector) RecordHandshakeOutcome(target, outcome string) {
	c.HandshakeOutcomes.WithLabelValues(target, outcome).Inc()
}

// IncAuthFailures increments the authentication failure counter for
// target.
func (c *Collector) IncAuthFailures(target string) {
	c.AuthFailures.WithLabelValues(target).Inc()
}

// -------------------------------------------------------------------------
// Framebuffer Update Latency
// -------------------------------------------------------------------------

// ObserveFramebufferUpdateLatency records the elapsed time between a
// FramebufferUpdateRequest and its matching commit for target.
func (c *Collector) ObserveFramebufferUpdateLatency(target string, elapsed time.Duration) {
	c.FramebufferUpdateLatency.WithLabelValues(target).Observe(elapsed.Seconds())
}
