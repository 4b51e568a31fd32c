package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
	breakerOpened      *prometheus.CounterVec
)

// MustRegisterMetrics registers the breaker collectors, labelled by target.
// Breakers built before registration only start reporting on their next
// state change.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbound_breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		}, []string{"target"})
		breakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_breaker_transition_total",
			Help:      "Count of breaker state transitions",
		}, []string{"target", "from", "to"})
		breakerOpened = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_breaker_open_total",
			Help:      "Number of times a breaker transitioned into open state",
		}, []string{"target"})
		reg.MustRegister(breakerState, breakerTransitions, breakerOpened)
	})
}
