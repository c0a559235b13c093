// Package metrics collects Prometheus metrics for filesystem
// operations. A Collector owns its own registry so that independent
// filesystems never collide on metric names.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric collection.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig returns metrics settings suitable for most callers.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "anyfs",
	}
}

// Collector records operation counts, latencies and byte totals.
type Collector struct {
	cfg      *Config
	registry *prometheus.Registry

	opsTotal   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	bytesRead  prometheus.Counter
	bytesWrite prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector(cfg *Config) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Collector{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
	}
	c.opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "operations_total",
		Help:      "Filesystem operations by name and status.",
	}, []string{"operation", "status"})
	c.opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Filesystem operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	c.bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "read_bytes_total",
		Help:      "Bytes read through instrumented files.",
	})
	c.bytesWrite = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "written_bytes_total",
		Help:      "Bytes written through instrumented files.",
	})
	c.registry.MustRegister(c.opsTotal, c.opDuration, c.bytesRead, c.bytesWrite)
	return c
}

// Registry exposes the collector's registry for scraping.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordOperation counts one operation and observes its latency.
func (c *Collector) RecordOperation(operation string, elapsed time.Duration, err error) {
	if !c.cfg.Enabled {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.opsTotal.WithLabelValues(operation, status).Inc()
	c.opDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordRead counts bytes read.
func (c *Collector) RecordRead(n int) {
	if c.cfg.Enabled && n > 0 {
		c.bytesRead.Add(float64(n))
	}
}

// RecordWrite counts bytes written.
func (c *Collector) RecordWrite(n int) {
	if c.cfg.Enabled && n > 0 {
		c.bytesWrite.Add(float64(n))
	}
}
