package registry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/signal"
	"github.com/chkd/chkd/internal/store"
)

// Sweeper periodically flags workers whose heartbeat has gone stale.
// It only ever emits signals; it never changes worker state itself.
type Sweeper struct {
	store     *store.Store
	clock     clock.Clock
	bus       *signal.Bus
	threshold time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

// NewSweeper builds a Sweeper with the configured staleness threshold and
// poll interval.
func NewSweeper(st *store.Store, clk clock.Clock, bus *signal.Bus, threshold, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:     st,
		clock:     clk,
		bus:       bus,
		threshold: threshold,
		interval:  interval,
		log:       log,
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(); err != nil {
				s.log.Error().Err(err).Msg("heartbeat sweep failed")
			}
		}
	}
}

// Sweep runs one pass: every working or merging worker whose heartbeat is
// older than the threshold gets a warning signal, unless it already has
// an undismissed one.
func (s *Sweeper) Sweep() error {
	cutoff := s.clock.Now().Add(-s.threshold)
	dead, err := s.store.AllDeadWorkers(cutoff)
	if err != nil {
		return err
	}

	for _, w := range dead {
		exists, err := s.bus.HasActive(w.ID, store.SignalWarning)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		details := map[string]any{
			"workerId": w.ID,
			"status":   string(w.Status),
		}
		if w.TaskID != nil {
			details["taskId"] = *w.TaskID
		}
		if w.HeartbeatAt != nil {
			details["heartbeatAt"] = w.HeartbeatAt.Format(time.RFC3339)
		}

		workerID := w.ID
		if _, err := s.bus.Emit(signal.Input{
			RepoID:         w.RepoID,
			WorkerID:       &workerID,
			Type:           store.SignalWarning,
			Message:        "Worker " + w.ID + " heartbeat is stale",
			Details:        details,
			ActionRequired: true,
			ActionOptions:  []string{"resume", "stop"},
		}); err != nil {
			return err
		}
		s.log.Warn().Str("worker", w.ID).Msg("stale heartbeat flagged")
	}
	return nil
}
