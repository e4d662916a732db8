// Package scheduler fires the recurring automatic cash cut at fixed
// wall-clock times. It is a thin clock source: all correctness (idempotent
// windows, serialization) lives in the CutCoordinator, so a duplicate or
// skewed fire is absorbed downstream.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"cortepos/internal/model"
	"cortepos/internal/service"
)

const tickInterval = 30 * time.Second

// CutScheduler triggers automatic cuts when the local wall clock reaches one
// of the configured HH:MM marks.
type CutScheduler struct {
	coordinator *service.CutCoordinator
	times       map[string]bool // "15:04" marks
	lastFired   string          // last "2006-01-02 15:04" minute that fired
}

// New parses wall-clock marks produced by config (already validated there).
func New(coordinator *service.CutCoordinator, times []string) *CutScheduler {
	marks := make(map[string]bool, len(times))
	for _, t := range times {
		marks[t] = true
	}
	return &CutScheduler{coordinator: coordinator, times: marks}
}

// Start launches the background goroutine. It respects ctx for shutdown.
func (s *CutScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		log.Info().Int("marks", len(s.times)).Msg("cut scheduler started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("cut scheduler shutting down")
				return
			case now := <-ticker.C:
				s.tick(ctx, now)
			}
		}
	}()
}

func (s *CutScheduler) tick(ctx context.Context, now time.Time) {
	mark := now.Format("15:04")
	if !s.times[mark] {
		return
	}
	// Two ticks land in the same minute; fire only once per mark.
	minute := now.Format("2006-01-02 15:04")
	if s.lastFired == minute {
		return
	}
	s.lastFired = minute

	cut, created, err := s.coordinator.TriggerAutomatic(ctx)
	switch {
	case errors.Is(err, model.ErrAlreadyCutting):
		log.Warn().Msg("scheduled cut skipped: another trigger in flight")
	case err != nil:
		// No partial state to clean up; the next mark re-aggregates.
		log.Error().Err(err).Msg("scheduled cut failed")
	case created:
		log.Info().Str("cut_id", cut.ID.String()).Str("mark", mark).Msg("scheduled cut completed")
	default:
		log.Info().Str("cut_id", cut.ID.String()).Msg("scheduled cut already recorded for this window")
	}
}
