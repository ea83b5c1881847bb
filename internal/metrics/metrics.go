// Package metrics holds the Prometheus collectors of the PDM ingestion
// service. Collectors register with the default registry on first use.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload results.
const (
	ResultSuccess      = "success"
	ResultFormatError  = "format_error"
	ResultSchemaError  = "schema_error"
	ResultPersistError = "persistence_error"
	ResultInvalidInput = "invalid_input"
)

type collectors struct {
	uploadsTotal   *prometheus.CounterVec
	rowsConsidered prometheus.Counter
	rowsInserted   prometheus.Counter
	rowErrors      prometheus.Counter
	uploadDuration *prometheus.HistogramVec
	storeUp        prometheus.Gauge
	uploadsPruned  prometheus.Counter
}

var collectorsSingleton = sync.OnceValue(func() *collectors {
	return &collectors{
		uploadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdm",
			Name:      "uploads_total",
			Help:      "Total number of budget execution uploads by result.",
		}, []string{"result"}),
		rowsConsidered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pdm",
			Name:      "rows_considered_total",
			Help:      "Final-level rows that passed the row filter.",
		}),
		rowsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pdm",
			Name:      "rows_inserted_total",
			Help:      "Aggregated ledger records persisted.",
		}),
		rowErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pdm",
			Name:      "row_errors_total",
			Help:      "Rows skipped because no product code could be extracted.",
		}),
		uploadDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pdm",
			Name:      "upload_duration_seconds",
			Help:      "Time spent parsing and persisting an upload.",
			Buckets: []float64{
				0.01, 0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30,
			},
		}, []string{"result"}),
		storeUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "store_up",
			Help:      "Whether the last ledger store ping succeeded (1/0).",
		}),
		uploadsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pdm",
			Name:      "uploads_pruned_total",
			Help:      "Upload log entries removed by the retention job.",
		}),
	}
})

func get() *collectors {
	return collectorsSingleton()
}

// ObserveUpload records the outcome of one upload.
func ObserveUpload(result string, considered, inserted, rowErrors int, elapsed time.Duration) {
	m := get()
	m.uploadsTotal.WithLabelValues(result).Inc()
	m.uploadDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	m.rowsConsidered.Add(float64(considered))
	m.rowsInserted.Add(float64(inserted))
	m.rowErrors.Add(float64(rowErrors))
}

func SetStoreUp(up bool) {
	if up {
		get().storeUp.Set(1)
		return
	}
	get().storeUp.Set(0)
}

func AddPrunedUploads(n int64) {
	get().uploadsPruned.Add(float64(n))
}
