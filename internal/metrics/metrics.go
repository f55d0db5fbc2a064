// Package metrics exposes scheduler outcomes as Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts booking attempts and status transitions. It satisfies
// reservation.Observer.
type Recorder struct {
	registry    *prometheus.Registry
	bookings    *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewRecorder registers the counters on a fresh registry together with the
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		bookings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservation",
			Name:      "bookings_total",
			Help:      "Booking requests by outcome.",
		}, []string{"outcome"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservation",
			Name:      "transitions_total",
			Help:      "Status transitions by action and outcome.",
		}, []string{"action", "outcome"}),
	}
}

func (r *Recorder) BookingAttempt(outcome string) {
	r.bookings.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Transition(action, outcome string) {
	r.transitions.WithLabelValues(action, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}
