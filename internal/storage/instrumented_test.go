package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/metrics"
)

func TestInstrument_NilMetricsReturnsBackend(t *testing.T) {
	b := NewLocalBackend(t.TempDir())
	assert.Same(t, b, Instrument(b, nil))
	assert.Same(t, b, InstrumentLocal(b, nil))
}

func TestInstrumentLocal_DelegatesAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	inner := NewLocalBackend(t.TempDir())
	b := InstrumentLocal(inner, m)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "k/a.jpg", bytes.NewReader([]byte("12345"))))
	ok, err := b.Exists(ctx, "k/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Remove(ctx, "k/a.jpg"))

	assert.Equal(t, inner.Path("k/a.jpg"), b.Path("k/a.jpg"))
	assert.Equal(t, "/k/a.jpg", b.URL("k/a.jpg"))
	assert.Equal(t, TierLocal, b.Tier())

	n, err := testutil.GatherAndCount(reg, "vstore_storage_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one series per operation")
}
