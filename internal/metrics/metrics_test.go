package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banana-bot/internal/game"
	"banana-bot/internal/game/session"
)

var _ session.Observer = (*Metrics)(nil)

// value sums every sample of the named family whose labels include want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metric
				}
			}
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return sum
}

func TestSessionLifecycleThroughRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("banana", reg)
	mgr := session.NewManager(session.Options{Observer: m})

	code, err := mgr.Create(context.Background(), 1, func(context.Context) (game.Variant, error) {
		return stubVariant{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, reg, "banana_active_sessions", nil))
	assert.Equal(t, 1.0, value(t, reg, "banana_sessions_started_total", map[string]string{"variant": "blackjack"}))

	require.NoError(t, mgr.End(code))
	assert.Equal(t, 0.0, value(t, reg, "banana_active_sessions", nil))
	assert.Equal(t, 1.0, value(t, reg, "banana_sessions_ended_total", map[string]string{"reason": session.ReasonEnded}))
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("banana", reg)

	m.ObserveInput(OutcomeOK, 3*time.Millisecond)
	m.ObserveInput(OutcomeRejected, time.Millisecond)
	m.MiningFinished("sludge")
	m.InstantGamePlayed("slots", 500)
	m.InstantGamePlayed("slots", -100)
	m.InstantGamePlayed("slots", 0)

	assert.Equal(t, 1.0, value(t, reg, "banana_session_inputs_total", map[string]string{"outcome": OutcomeRejected}))
	assert.Equal(t, 2.0, value(t, reg, "banana_session_input_latency_seconds", nil))
	assert.Equal(t, 1.0, value(t, reg, "banana_mining_jobs_total", map[string]string{"outcome": "sludge"}))
	for _, result := range []string{"win", "loss", "push"} {
		assert.Equal(t, 1.0, value(t, reg, "banana_instant_games_total", map[string]string{"result": result}), result)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("banana", reg)
	assert.Panics(t, func() { NewMetrics("banana", reg) })
}

type stubVariant struct{}

func (stubVariant) Kind() game.Kind { return game.KindBlackJack }

func (stubVariant) HandleInput(context.Context, game.Input) (*game.Result, error) {
	return &game.Result{}, nil
}
