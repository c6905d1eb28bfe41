// Package metrics holds the Prometheus collectors exported by the storage
// engine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vstore"

// Metrics groups storage backend and downloader collectors.
type Metrics struct {
	storageOps     *prometheus.CounterVec   // tier, operation
	storageErrors  *prometheus.CounterVec   // tier, operation
	storageLatency *prometheus.HistogramVec // tier, operation
	storedBytes    *prometheus.CounterVec   // tier

	downloads     *prometheus.CounterVec // result
	downloadBytes prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil registry
// disables metrics and returns a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		storageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage backend operations",
		}, []string{"tier", "operation"}),

		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of failed storage backend operations",
		}, []string{"tier", "operation"}),

		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Storage backend operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier", "operation"}),

		storedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "written_bytes_total",
			Help:      "Total number of bytes written to a storage tier",
		}, []string{"tier"}),

		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloader",
			Name:      "downloads_total",
			Help:      "Total number of source downloads by result",
		}, []string{"result"}), // result: ok, http_error, error

		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloader",
			Name:      "downloaded_bytes_total",
			Help:      "Total number of bytes downloaded",
		}),
	}

	var err error
	if m.storageOps, err = register(reg, m.storageOps); err != nil {
		return nil, err
	}
	if m.storageErrors, err = register(reg, m.storageErrors); err != nil {
		return nil, err
	}
	if m.storageLatency, err = register(reg, m.storageLatency); err != nil {
		return nil, err
	}
	if m.storedBytes, err = register(reg, m.storedBytes); err != nil {
		return nil, err
	}
	if m.downloads, err = register(reg, m.downloads); err != nil {
		return nil, err
	}
	if m.downloadBytes, err = register(reg, m.downloadBytes); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, or returns the collector already registered
// under the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

// ObserveStorage records one backend operation that started at start.
func (m *Metrics) ObserveStorage(tier, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(tier, op).Inc()
	m.storageLatency.WithLabelValues(tier, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.storageErrors.WithLabelValues(tier, op).Inc()
	}
}

// AddStoredBytes counts bytes written to tier.
func (m *Metrics) AddStoredBytes(tier string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.storedBytes.WithLabelValues(tier).Add(float64(n))
}

// ObserveDownload records the outcome of one download.
func (m *Metrics) ObserveDownload(result string, n int64) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(result).Inc()
	if n > 0 {
		m.downloadBytes.Add(float64(n))
	}
}
