package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"cortepos/internal/model"
	"cortepos/internal/repository"
)

// SchedulerActor is recorded as createdBy on automatic cuts.
const SchedulerActor = "scheduler"

// CutCoordinator orchestrates manual and scheduled cut triggers. Triggers
// for one coordinator are serialized through a capacity-1 semaphore: a
// second trigger waits its turn (and then hits the idempotency check)
// rather than racing, and a trigger that times out waiting is rejected with
// ErrAlreadyCutting instead of being queued silently.
//
// The "last window end" cursor is the only other shared state. It is loaded
// from the most recent persisted cut at startup and advanced only after a
// successful write, so a crash between aggregation and persistence never
// skips a window.
type CutCoordinator struct {
	store  repository.LedgerStore
	agg    *Aggregator
	replay *ReplayCache

	sem         chan struct{}
	lockTimeout time.Duration
	now         func() time.Time

	mu            sync.Mutex
	lastWindowEnd time.Time
}

func NewCutCoordinator(store repository.LedgerStore, agg *Aggregator, replay *ReplayCache) *CutCoordinator {
	return &CutCoordinator{
		store:       store,
		agg:         agg,
		replay:      replay,
		sem:         make(chan struct{}, 1),
		lockTimeout: 10 * time.Second,
		now:         time.Now,
	}
}

// LoadCursor seeds the last-window-end cursor from the most recent persisted
// cut. Called once at startup; a fresh store leaves the cursor zero and the
// first window starts at the beginning of the current day.
func (c *CutCoordinator) LoadCursor(ctx context.Context) error {
	latest, err := c.store.FindLatest(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.advanceCursor(latest.WindowEnd)
	return nil
}

// TriggerAutomatic runs one scheduled cut: it freezes the window from the
// cursor (or start of day) to now, aggregates it, and persists a closed
// summary cut. A duplicate fire for the same minute-truncated window returns
// the already-created cut unchanged with created=false.
func (c *CutCoordinator) TriggerAutomatic(ctx context.Context) (*model.CashCut, bool, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, false, err
	}
	defer c.release()

	windowStart, windowEnd := c.window()
	if !windowStart.Before(windowEnd) {
		// The cursor already covers this instant: a duplicate fire for an
		// already-cut window. Absorb it into the automatic cut that set the
		// cursor. A fresh store, or a cursor seeded by a drawer cut, has no
		// such cut; record a one-second empty window instead of borrowing a
		// cut of another kind.
		latest, err := c.store.FindLatest(ctx)
		switch {
		case err == nil && latest.Kind == model.CutKindAutomatic:
			return latest, false, nil
		case err != nil && !errors.Is(err, model.ErrNotFound):
			return nil, false, err
		}
		windowEnd = windowStart.Add(time.Second)
	}
	cut := &model.CashCut{
		Kind:          model.CutKindAutomatic,
		Status:        model.CutStatusClosed,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		WindowKey:     model.WindowKeyFor(model.CutKindAutomatic, windowStart, windowEnd),
		OpeningAmount: decimal.Zero,
		CreatedBy:     SchedulerActor,
		ClosedBy:      SchedulerActor,
	}
	return c.aggregateAndPersist(ctx, cut)
}

// TriggerManual runs a caller-initiated cut. Idempotency is keyed on the
// caller-supplied token, falling back to (actor, notes, minute-truncated
// time); repeated triggers with the same key return the original cut.
func (c *CutCoordinator) TriggerManual(ctx context.Context, actor, notes, idempotencyKey string) (*model.CashCut, bool, error) {
	if actor == "" {
		return nil, false, fmt.Errorf("%w: actor is required", model.ErrValidation)
	}

	key := idempotencyKey
	if key == "" {
		key = fmt.Sprintf("%s|%s|%s", actor, notes,
			c.now().UTC().Truncate(time.Minute).Format("200601021504"))
	}

	// Fast path: a replayed trigger never waits for the semaphore.
	if id, ok := c.replay.Get(ctx, key); ok {
		if cut, err := c.store.FindByID(ctx, id); err == nil {
			return cut, false, nil
		}
	}

	if err := c.acquire(ctx); err != nil {
		return nil, false, err
	}
	defer c.release()

	windowStart, windowEnd := c.window()
	if !windowStart.Before(windowEnd) {
		// A manual trigger right after a previous cut still produces a cut;
		// clamp to a one-second window so the interval stays well-formed.
		windowEnd = windowStart.Add(time.Second)
	}
	cut := &model.CashCut{
		Kind:           model.CutKindManual,
		Status:         model.CutStatusClosed,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		WindowKey:      model.WindowKeyFor(model.CutKindManual, windowStart, windowEnd),
		IdempotencyKey: key,
		OpeningAmount:  decimal.Zero,
		Notes:          notes,
		CreatedBy:      actor,
		ClosedBy:       actor,
	}
	persisted, created, err := c.aggregateAndPersist(ctx, cut)
	if err == nil {
		c.replay.Remember(ctx, key, persisted.ID)
	}
	return persisted, created, err
}

// aggregateAndPersist aggregates the cut's window and hands the result to
// the store. Aggregation is pure and runs outside any store lock; its output
// is only committed inside the store's critical section, where the duplicate
// check and the insert are one atomic unit. A failure here leaves no partial
// cut: the next trigger re-aggregates from scratch.
func (c *CutCoordinator) aggregateAndPersist(ctx context.Context, cut *model.CashCut) (*model.CashCut, bool, error) {
	totals, err := c.agg.Aggregate(ctx, cut.WindowStart, cut.WindowEnd)
	if err != nil {
		return nil, false, err
	}
	cut.Totals = totals
	cut.ExpectedAmount = totals.TotalIncome
	// An all-zero window is a legitimate empty period, not lost data; the
	// cut is still created but tagged for monitoring.
	cut.EmptyPeriod = totals.RecordCount == 0

	persisted, created, err := c.store.PersistClosedSummary(ctx, cut)
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Info().
			Str("cut_id", persisted.ID.String()).
			Str("kind", persisted.Kind).
			Time("window_start", persisted.WindowStart).
			Time("window_end", persisted.WindowEnd).
			Bool("empty_period", persisted.EmptyPeriod).
			Msg("cash cut created")
	} else {
		log.Info().
			Str("cut_id", persisted.ID.String()).
			Str("kind", persisted.Kind).
			Msg("duplicate cut trigger absorbed")
	}
	c.advanceCursor(persisted.WindowEnd)
	return persisted, created, nil
}

func (c *CutCoordinator) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return model.ErrAlreadyCutting
	case <-time.After(c.lockTimeout):
		return model.ErrAlreadyCutting
	}
}

func (c *CutCoordinator) release() { <-c.sem }

// window computes [cursor-or-start-of-day, now). The result may be
// degenerate when a trigger lands on the exact cursor instant; callers decide
// whether to absorb or clamp that case.
func (c *CutCoordinator) window() (time.Time, time.Time) {
	now := c.now().UTC()

	c.mu.Lock()
	start := c.lastWindowEnd
	c.mu.Unlock()

	if start.IsZero() {
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return start, now
}

// advanceCursor moves the cursor forward only; a replayed older cut never
// rewinds it.
func (c *CutCoordinator) advanceCursor(windowEnd time.Time) {
	c.mu.Lock()
	if windowEnd.After(c.lastWindowEnd) {
		c.lastWindowEnd = windowEnd
	}
	c.mu.Unlock()
}
