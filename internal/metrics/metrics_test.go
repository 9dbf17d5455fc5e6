package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.IncrementResolved("resolved")
	m.IncrementResolved("resolved")
	m.IncrementResolved("unresolved")
	m.IncrementResolverCall("ok")
	m.AddRowsDropped("deseq2", 3)
	m.AddRowsDropped("deseq2", 0) // no-op
	m.AddColumnsDropped("counts", 1)
	m.IncrementDocuments("loaded")
	m.AddRecordsStored("gene", 42)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.GenesResolved.WithLabelValues("resolved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GenesResolved.WithLabelValues("unresolved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResolverCalls.WithLabelValues("ok")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.RowsDropped.WithLabelValues("deseq2")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ColumnsDropped.WithLabelValues("counts")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Documents.WithLabelValues("loaded")))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.RecordsStored.WithLabelValues("gene")))
}

func TestMetrics_LoadDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveLoadDuration(250 * time.Millisecond)

	count, err := testutil.GatherAndCount(registry, "omics_loader_load_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementResolved("resolved")
		m.AddRowsDropped("counts", 2)
		m.ObserveLoadDuration(time.Second)
	})
}
