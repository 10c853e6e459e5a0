package observability_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue finds the sample of name whose single label equals value.
func counterValue(t *testing.T, reg *prometheus.Registry, name, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total uint64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetHistogram().GetSampleCount()
		}
	}
	return total
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewMetrics(reg).Hooks()

	hooks.OnDispatch(domain.NewAction(domain.ActionTaskAdd, nil), []string{domain.SliceTasks})
	hooks.OnDispatch(domain.NewAction(domain.ActionTaskAdd, nil), nil)
	hooks.OnNavigate(&domain.NavigationEvent{Path: "/tasks/1", Pattern: "/tasks/:id", Status: "resolved", Duration: 20 * time.Millisecond})
	hooks.OnNavigate(&domain.NavigationEvent{Path: "/nope", Status: "not_found"})
	hooks.OnNavigate(&domain.NavigationEvent{Path: "/app", Pattern: "/app", Status: "denied"})
	hooks.OnAuthEvent(domain.AuthLogin)

	assert.Equal(t, 2.0, counterValue(t, reg, "taskup_actions_total", "TASK_ADD"))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskup_navigations_total", "resolved"))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskup_navigations_total", "not_found"))
	assert.Equal(t, 1.0, counterValue(t, reg, "taskup_auth_events_total", "login"))
	assert.Equal(t, uint64(1), histogramCount(t, reg, "taskup_view_load_seconds"))
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnAuthEvent: func(e domain.AuthEvent) { calls = append(calls, "a:"+string(e)) }}
	b := domain.LifecycleHooks{
		OnAuthEvent: func(e domain.AuthEvent) { calls = append(calls, "b:"+string(e)) },
		OnNavigate:  func(*domain.NavigationEvent) { calls = append(calls, "b:nav") },
	}

	h := observability.Chain(a, domain.LifecycleHooks{}, b)
	assert.Nil(t, h.OnDispatch)
	h.OnAuthEvent(domain.AuthLogout)
	h.OnNavigate(&domain.NavigationEvent{})
	assert.Equal(t, []string{"a:logout", "b:logout", "b:nav"}, calls)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := observability.LogHooks(slog.New(slog.NewTextHandler(&buf, nil)))
	h.OnNavigate(&domain.NavigationEvent{Path: "/x", Status: "resolved"})
	assert.Contains(t, buf.String(), "navigation_settled")
	assert.Contains(t, buf.String(), "path=/x")
}
