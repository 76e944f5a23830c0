package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "manager",
			Name:      "loads_total",
			Help:      "Model loads by result",
		},
		[]string{"result"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chatd",
			Subsystem: "manager",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	leasesInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "chatd",
			Subsystem: "manager",
			Name:      "leases_inflight",
			Help:      "Outstanding leases per model",
		},
		[]string{"model"},
	)

	unloadRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "manager",
			Name:      "unload_rejections_total",
			Help:      "Unload requests refused, by reason",
		},
		[]string{"reason"},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "manager",
			Name:      "backpressure_total",
			Help:      "Generations rejected as too busy, by model and stage",
		},
		[]string{"model", "stage"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, leasesInflight, unloadRejections, backpressureTotal)
}
