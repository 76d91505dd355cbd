// Package metrics exposes replay counters through Prometheus.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the replay server's Prometheus collectors. A nil
// *Metrics is valid and records nothing, so instrumentation points never
// need to guard against a disabled metrics surface.
type Metrics struct {
	registry *prometheus.Registry
	logger   log.Logger

	framesSent  prometheus.Counter
	bytesSent   prometheus.Counter
	unknownTags prometheus.Counter

	subscribersActive prometheus.Gauge
	subscriberDrops   prometheus.Counter
	subscriberRejects prometheus.Counter

	broadcastLatency prometheus.Histogram

	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
}

// New creates and registers the replay metric set under a namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		logger:   log.Root().New("module", "metrics"),

		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total frames broadcast to subscribers",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total frame bytes broadcast to subscribers",
		}),
		unknownTags: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_type_tags_total",
			Help:      "Unrecognized type tags skipped during resynchronization",
		}),
		subscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers_active",
			Help:      "Currently connected subscribers",
		}),
		subscriberDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_drops_total",
			Help:      "Subscribers dropped on transport write failure",
		}),
		subscriberRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_rejects_total",
			Help:      "Connections rejected because the registry was full",
		}),
		broadcastLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_latency_nanoseconds",
			Help:      "Wall time of one broadcast pass over all slots",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 100000, 1000000},
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_bytes",
			Help:      "Current memory usage in bytes",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines_count",
			Help:      "Current number of goroutines",
		}),
	}

	registry.MustRegister(
		m.framesSent,
		m.bytesSent,
		m.unknownTags,
		m.subscribersActive,
		m.subscriberDrops,
		m.subscriberRejects,
		m.broadcastLatency,
		m.memoryUsage,
		m.goroutines,
	)
	return m
}

// StartServer serves /metrics on the given port in the background.
func (m *Metrics) StartServer(port int) {
	if m == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	addr := ":" + strconv.Itoa(port)
	m.logger.Info("Prometheus metrics available", "addr", addr+"/metrics")
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// RecordBroadcast records one broadcast pass.
func (m *Metrics) RecordBroadcast(frameBytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.bytesSent.Add(float64(frameBytes))
	m.broadcastLatency.Observe(float64(elapsed.Nanoseconds()))
}

// RecordUnknownTag records a single-byte resynchronization.
func (m *Metrics) RecordUnknownTag() {
	if m == nil {
		return
	}
	m.unknownTags.Inc()
}

// SetSubscribers updates the active subscriber gauge.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribersActive.Set(float64(n))
}

// RecordDrop records a subscriber lost to a write failure.
func (m *Metrics) RecordDrop() {
	if m == nil {
		return
	}
	m.subscriberDrops.Inc()
}

// RecordReject records a connection refused by a full registry.
func (m *Metrics) RecordReject() {
	if m == nil {
		return
	}
	m.subscriberRejects.Inc()
}

// CollectSystemMetrics samples runtime stats until ctx is done.
func (m *Metrics) CollectSystemMetrics(ctx context.Context) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			m.memoryUsage.Set(float64(memStats.Alloc))
			m.goroutines.Set(float64(runtime.NumGoroutine()))
		}
	}
}
