package storage

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/vstore/internal/metrics"
)

// Instrumented wraps a Backend and records Prometheus metrics for every call.
type Instrumented struct {
	next    Backend
	metrics *metrics.Metrics
}

// Instrument decorates b with metrics. A nil m returns b unchanged.
func Instrument(b Backend, m *metrics.Metrics) Backend {
	if m == nil {
		return b
	}
	return &Instrumented{next: b, metrics: m}
}

// InstrumentLocal is Instrument for local backends; the result still
// exposes Path.
func InstrumentLocal(b Local, m *metrics.Metrics) Local {
	if m == nil {
		return b
	}
	return &instrumentedLocal{Instrumented: &Instrumented{next: b, metrics: m}, local: b}
}

type instrumentedLocal struct {
	*Instrumented
	local Local
}

func (i *instrumentedLocal) Path(key string) string {
	return i.local.Path(key)
}

func (i *Instrumented) tier() string {
	return string(i.next.Tier())
}

func (i *Instrumented) Save(ctx context.Context, key string, src io.ReadSeeker) error {
	start := time.Now()
	err := i.next.Save(ctx, key, src)
	i.metrics.ObserveStorage(i.tier(), "save", start, err)
	if err == nil {
		if n, serr := src.Seek(0, io.SeekEnd); serr == nil {
			i.metrics.AddStoredBytes(i.tier(), n)
		}
	}
	return err
}

func (i *Instrumented) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Remove(ctx, key)
	i.metrics.ObserveStorage(i.tier(), "remove", start, err)
	return err
}

func (i *Instrumented) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, key)
	i.metrics.ObserveStorage(i.tier(), "exists", start, err)
	return ok, err
}

func (i *Instrumented) URL(key string, opts ...URLOption) string {
	return i.next.URL(key, opts...)
}

func (i *Instrumented) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := i.next.Read(ctx, key)
	i.metrics.ObserveStorage(i.tier(), "read", start, err)
	return rc, err
}

func (i *Instrumented) Tier() Tier {
	return i.next.Tier()
}
