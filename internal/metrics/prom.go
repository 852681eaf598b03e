package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are the Prometheus series exported on /metrics.
type Collectors struct {
	Generations   *prometheus.CounterVec
	Tokens        *prometheus.CounterVec
	LatencySecond prometheus.Histogram
	SlotOps       *prometheus.CounterVec
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grocery",
			Name:      "generations_total",
			Help:      "Grocery list generations by outcome.",
		}, []string{"outcome"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grocery",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by generation requests.",
		}, []string{"model", "kind"}),
		LatencySecond: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grocery",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of generation requests.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		}),
		SlotOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grocery",
			Name:      "save_slot_operations_total",
			Help:      "Save slot operations by kind and outcome.",
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(c.Generations, c.Tokens, c.LatencySecond, c.SlotOps)
	return c
}
