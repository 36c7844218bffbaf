// Package metrics exposes the client's session counters on a private
// Prometheus registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coffeedia"

// Refresh results used as the "result" label.
const (
	RefreshSuccess  = "success"
	RefreshRejected = "rejected"
	RefreshNetwork  = "network"
	RefreshNoToken  = "no_token"
	RefreshDropped  = "dropped"
)

type Metrics struct {
	Registry *prometheus.Registry

	refreshAttempts    *prometheus.CounterVec
	retriedRequests    prometheus.Counter
	sessionExpirations prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		refreshAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by result",
		}, []string{"result"}),
		retriedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_retried_total",
			Help:      "Requests re-issued after a 401 response",
		}),
		sessionExpirations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_expirations_total",
			Help:      "Sessions cleared because the tokens could not be renewed",
		}),
	}
}

func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRetried() {
	if m == nil {
		return
	}
	m.retriedRequests.Inc()
}

func (m *Metrics) IncSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpirations.Inc()
}

// Sample is one counter value flattened for display.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers every counter in the registry, sorted by name.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Value: metric.GetCounter().GetValue()}
			if lp := metric.GetLabel(); len(lp) > 0 {
				s.Labels = make(map[string]string, len(lp))
				for _, l := range lp {
					s.Labels[l.GetName()] = l.GetValue()
				}
			}
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
