package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the runtime's Prometheus collectors.
type Metrics struct {
	Messages     *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Gas          *prometheus.HistogramVec
	LiveActors   prometheus.Gauge
	Spawns       *prometheus.CounterVec
	Passivations prometheus.Counter
	FeesBurned   prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg creates
// unregistered collectors, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupledger",
			Name:      "messages_total",
			Help:      "Messages processed by actors, by actor kind, opcode and outcome.",
		}, []string{"actor", "opcode", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groupledger",
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling and committing one message.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"actor"}),
		Gas: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groupledger",
			Name:      "gas_used",
			Help:      "Resource budget consumed per message.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 10),
		}, []string{"actor"}),
		LiveActors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "groupledger",
			Name:      "live_actors",
			Help:      "Actors currently holding a goroutine.",
		}),
		Spawns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupledger",
			Name:      "actor_spawns_total",
			Help:      "Actors deployed or rehydrated, by actor kind and reason.",
		}, []string{"actor", "reason"}),
		Passivations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "groupledger",
			Name:      "actor_passivations_total",
			Help:      "Actors evicted from the live set.",
		}),
		FeesBurned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "groupledger",
			Name:      "fees_burned_nano_total",
			Help:      "Gas fees withheld from refunds, in nano-units.",
		}),
	}
}
