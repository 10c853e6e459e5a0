package observability

import (
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	Actions     *prometheus.CounterVec
	Navigations *prometheus.CounterVec
	AuthEvents  *prometheus.CounterVec
	ViewLoad    *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskup_actions_total",
			Help: "Total number of dispatched actions",
		}, []string{"type"}),
		Navigations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskup_navigations_total",
			Help: "Total number of settled navigations by outcome",
		}, []string{"status"}),
		AuthEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskup_auth_events_total",
			Help: "Total number of session events",
		}, []string{"event"}),
		ViewLoad: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskup_view_load_seconds",
			Help:    "Time from navigation start until the view handler settled",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(a domain.Action, _ []string) {
			m.Actions.WithLabelValues(string(a.Type)).Inc()
		},
		OnNavigate: func(ev *domain.NavigationEvent) {
			m.Navigations.WithLabelValues(ev.Status).Inc()
			// Only navigations that ran a handler have a meaningful load time.
			if ev.Pattern != "" && (ev.Status == "resolved" || ev.Status == "error") {
				m.ViewLoad.WithLabelValues(ev.Pattern).Observe(ev.Duration.Seconds())
			}
		},
		OnAuthEvent: func(e domain.AuthEvent) {
			m.AuthEvents.WithLabelValues(string(e)).Inc()
		},
	}
}
