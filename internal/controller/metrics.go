package controller

import "github.com/prometheus/client_golang/prometheus"

var allStates = []State{StateOffline, StateLoading, StateOnline, StateStopping, StateFailed}

var (
	stateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "koboldswitch",
			Name:      "model_state",
			Help:      "Current model state; 1 for the active state, 0 otherwise.",
		},
		[]string{"state"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "koboldswitch",
			Name:      "state_transitions_total",
			Help:      "Model state transitions.",
		},
		[]string{"from", "to"},
	)
	childExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "koboldswitch",
			Name:      "child_exits_total",
			Help:      "koboldcpp process exits by classification.",
		},
		[]string{"reason"},
	)
	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "koboldswitch",
			Name:      "status_sync_duration_seconds",
			Help:      "Duration of koboldcpp status endpoint calls.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(stateGauge, transitionsTotal, childExitsTotal, syncDuration)
}

func recordState(from, to State) {
	if from != to {
		transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	}
	for _, s := range allStates {
		v := 0.0
		if s == to {
			v = 1
		}
		stateGauge.WithLabelValues(string(s)).Set(v)
	}
}
