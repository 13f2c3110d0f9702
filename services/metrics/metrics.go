// Package metricsvc exposes Prometheus metrics about sign-ins, auth events and route decisions.
package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authsvc "github.com/trezcool/zenacademy/services/auth"
)

const namespace = "zenacademy"

type Collector struct {
	logins     *prometheus.CounterVec
	authEvents *prometheus.CounterVec
	decisions  *prometheus.CounterVec
}

// NewCollector registers the collector's metrics on reg.
// liveClients, if set, is sampled on each scrape.
func NewCollector(reg prometheus.Registerer, liveClients func() int) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Auth notices seen on the event bus by type.",
		}, []string{"type"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Route guard decisions by kind and route access.",
		}, []string{"kind", "access"}),
	}
	reg.MustRegister(c.logins, c.authEvents, c.decisions)

	if liveClients != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Browser clients with a live session manager.",
		}, func() float64 { return float64(liveClients()) }))
	}
	return c
}

// RecordLogin counts a login attempt. outcome is one of success, invalid, throttled, no_profile or error.
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDecision(kind, access string) {
	c.decisions.WithLabelValues(kind, access).Inc()
}

// ObserveBus counts every notice published on bus until the returned func is called.
func (c *Collector) ObserveBus(bus authsvc.Bus) (cancel func()) {
	return bus.Subscribe(func(n authsvc.Notice) {
		c.authEvents.WithLabelValues(string(n.Type)).Inc()
	})
}

// Handler serves the gathered metrics for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
