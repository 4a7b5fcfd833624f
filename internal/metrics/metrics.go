// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
)

// Input outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	Active          prometheus.Gauge
	SessionsStarted *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec
	Inputs          *prometheus.CounterVec
	InputLatency    prometheus.Histogram
	MiningJobs      *prometheus.CounterVec
	InstantGames    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg. A nil reg
// means the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live game sessions",
		}),
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Game sessions created, by variant",
		}, []string{"variant"}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Game sessions terminated, by variant and reason",
		}, []string{"variant", "reason"}),
		Inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_inputs_total",
			Help:      "Chat inputs routed to sessions, by outcome",
		}, []string{"outcome"}),
		InputLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_input_latency_seconds",
			Help:      "Time spent handling one session input",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		MiningJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mining_jobs_total",
			Help:      "Finished mining jobs, by outcome",
		}, []string{"outcome"}),
		InstantGames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instant_games_total",
			Help:      "Instant games played, by game and result",
		}, []string{"game", "result"}),
	}

	reg.MustRegister(
		m.Active,
		m.SessionsStarted,
		m.SessionsEnded,
		m.Inputs,
		m.InputLatency,
		m.MiningJobs,
		m.InstantGames,
	)
	return m
}

// SessionStarted implements session.Observer.
func (m *Metrics) SessionStarted(kind game.Kind) {
	m.SessionsStarted.WithLabelValues(string(kind)).Inc()
}

// SessionEnded implements session.Observer.
func (m *Metrics) SessionEnded(kind game.Kind, reason string) {
	m.SessionsEnded.WithLabelValues(string(kind), reason).Inc()
}

// ActiveSessions implements session.Observer.
func (m *Metrics) ActiveSessions(n int) {
	m.Active.Set(float64(n))
}

// ObserveInput records one handled session input.
func (m *Metrics) ObserveInput(outcome string, d time.Duration) {
	m.Inputs.WithLabelValues(outcome).Inc()
	m.InputLatency.Observe(d.Seconds())
}

// MiningFinished records a completed or cancelled mining job.
func (m *Metrics) MiningFinished(outcome string) {
	m.MiningJobs.WithLabelValues(outcome).Inc()
}

// InstantGamePlayed records an instant game by the sign of its payout.
func (m *Metrics) InstantGamePlayed(name string, payout int64) {
	result := "push"
	switch {
	case payout > 0:
		result = "win"
	case payout < 0:
		result = "loss"
	}
	m.InstantGames.WithLabelValues(name, result).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down metrics server")
		}
	}()

	log.Info().Str("addr", addr).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
