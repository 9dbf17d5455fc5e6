// Package metrics provides Prometheus instrumentation for the loader.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the loader.
type Metrics struct {
	// Identifier resolution outcomes by result ("resolved", "unresolved")
	GenesResolved *prometheus.CounterVec

	// Calls that reached the external resolver service by status
	// ("ok", "unavailable")
	ResolverCalls *prometheus.CounterVec

	// Rows and columns dropped during reconciliation by file kind
	RowsDropped    *prometheus.CounterVec
	ColumnsDropped *prometheus.CounterVec

	// Documents processed by outcome ("loaded", "failed")
	Documents *prometheus.CounterVec

	// Records written to the warehouse by entity kind
	RecordsStored *prometheus.CounterVec

	// Time spent loading a single experiment directory
	LoadDuration prometheus.Histogram
}

// New creates and registers all loader metrics on the given registerer.
// A nil registerer uses the default registry.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		GenesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "omics_loader_genes_resolved_total",
			Help: "Gene identifier resolution attempts by outcome",
		}, []string{"outcome"}),

		ResolverCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "omics_loader_resolver_calls_total",
			Help: "Requests issued to the external resolver service by status",
		}, []string{"status"}),

		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "omics_loader_rows_dropped_total",
			Help: "Result rows skipped during reconciliation by file kind",
		}, []string{"kind"}),

		ColumnsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "omics_loader_columns_dropped_total",
			Help: "Unresolvable columns skipped during reconciliation by file kind",
		}, []string{"kind"}),

		Documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "omics_loader_documents_total",
			Help: "Metadata documents processed by outcome",
		}, []string{"outcome"}),

		RecordsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "omics_loader_records_stored_total",
			Help: "Records written to the warehouse by entity kind",
		}, []string{"kind"}),

		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "omics_loader_load_duration_seconds",
			Help:    "Duration of loading a single experiment directory",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementResolved records a gene resolution attempt outcome.
func (m *Metrics) IncrementResolved(outcome string) {
	if m != nil {
		m.GenesResolved.WithLabelValues(outcome).Inc()
	}
}

// AddResolved records a batch of gene resolution outcomes at once.
func (m *Metrics) AddResolved(outcome string, n int64) {
	if m != nil && n > 0 {
		m.GenesResolved.WithLabelValues(outcome).Add(float64(n))
	}
}

// IncrementResolverCall records a round trip to the resolver service.
func (m *Metrics) IncrementResolverCall(status string) {
	if m != nil {
		m.ResolverCalls.WithLabelValues(status).Inc()
	}
}

// AddRowsDropped records rows skipped while reconciling a file.
func (m *Metrics) AddRowsDropped(kind string, n int) {
	if m != nil && n > 0 {
		m.RowsDropped.WithLabelValues(kind).Add(float64(n))
	}
}

// AddColumnsDropped records unresolvable columns skipped while reconciling a file.
func (m *Metrics) AddColumnsDropped(kind string, n int) {
	if m != nil && n > 0 {
		m.ColumnsDropped.WithLabelValues(kind).Add(float64(n))
	}
}

// IncrementDocuments records a processed metadata document.
func (m *Metrics) IncrementDocuments(outcome string) {
	if m != nil {
		m.Documents.WithLabelValues(outcome).Inc()
	}
}

// AddRecordsStored records entities written to the warehouse.
func (m *Metrics) AddRecordsStored(kind string, n int) {
	if m != nil && n > 0 {
		m.RecordsStored.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveLoadDuration records how long one experiment directory took to load.
func (m *Metrics) ObserveLoadDuration(d time.Duration) {
	if m != nil {
		m.LoadDuration.Observe(d.Seconds())
	}
}
