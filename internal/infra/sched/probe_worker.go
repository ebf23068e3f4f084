package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/infra/metrics"
)

var ErrPanelDown = errors.New("panel is unreachable")

// ProbeWorker periodically checks the panel and publishes the result as the
// panel_up gauge. Extra hooks run on the same tick.
type ProbeWorker struct {
	interval time.Duration
	prober   adapter.HealthProber
	hooks    []func()
	up       atomic.Bool
	log      *zerolog.Logger
}

func NewProbeWorker(interval time.Duration, prober adapter.HealthProber, logger *zerolog.Logger, hooks ...func()) *ProbeWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "ProbeWorker").Logger()
	return &ProbeWorker{interval: interval, prober: prober, hooks: hooks, log: &l}
}

// Probe runs one check and records the result.
func (w *ProbeWorker) Probe(ctx context.Context) bool {
	ok := w.prober.TestConnection(ctx)
	if prev := w.up.Swap(ok); prev != ok {
		w.log.Info().Bool("up", ok).Msg("panel status changed")
	}
	metrics.SetPanelUp(ok)
	for _, h := range w.hooks {
		h()
	}
	return ok
}

// Check adapts the last probe result to a health check.
func (w *ProbeWorker) Check(context.Context) error {
	if !w.up.Load() {
		return ErrPanelDown
	}
	return nil
}

func (w *ProbeWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting probe worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping probe worker")
			return ctx.Err()
		case <-ticker.C:
			if !w.Probe(ctx) {
				w.log.Warn().Msg("panel probe failed")
			}
		}
	}
}
