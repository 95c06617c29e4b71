// Package metrics counts what the authenticated transport does: requests by
// outcome class, refresh attempts, replays and notifications.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes
const (
	RefreshSuccess = "success"
	RefreshFailed  = "failed"
	RefreshNoToken = "no_token"
)

// Recorder owns a private registry so several clients (and tests) never collide
type Recorder struct {
	registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec
	Retries       prometheus.Counter
	Notifications *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bumbeez",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Outbound requests by result class.",
		}, []string{"class"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bumbeez",
			Subsystem: "client",
			Name:      "refreshes_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bumbeez",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Requests replayed after a refresh.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bumbeez",
			Subsystem: "client",
			Name:      "notifications_total",
			Help:      "User notifications by severity.",
		}, []string{"severity"}),
	}
	r.registry.MustRegister(r.Requests, r.Refreshes, r.Retries, r.Notifications)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Snapshot flattens every non-zero counter into "name{labels}" -> value
func (r *Recorder) Snapshot() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			if v := m.GetCounter().GetValue(); v != 0 {
				out[name] = v
			}
		}
	}
	return out, nil
}
