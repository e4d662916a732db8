package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortepos/internal/model"
	"cortepos/internal/repository"
)

func newTestCoordinator(t *testing.T, src repository.TransactionSource) *CutCoordinator {
	t.Helper()
	store := repository.NewFileLedgerStore(filepath.Join(t.TempDir(), "cuts.json"))
	return NewCutCoordinator(store, NewAggregator(src), nil)
}

func TestTriggerManualConcurrentSameKey(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{records: []model.TransactionRecord{
		sale(at(9, 0), "100.00", "40.00", "cash", "pos", "Latte", 1),
	}})
	coord.now = func() time.Time { return at(12, 0) }

	const workers = 10
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, workers)
	createds := make([]bool, workers)
	errs := make([]error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			cut, created, err := coord.TriggerManual(context.Background(), "maria", "", "k1")
			errs[w] = err
			if err == nil {
				ids[w] = cut.ID
				createds[w] = created
			}
		}(w)
	}
	wg.Wait()

	distinct := map[uuid.UUID]struct{}{}
	createdCount := 0
	for w := 0; w < workers; w++ {
		require.NoError(t, errs[w])
		distinct[ids[w]] = struct{}{}
		if createds[w] {
			createdCount++
		}
	}
	assert.Len(t, distinct, 1, "all triggers must resolve to one cut")
	assert.Equal(t, 1, createdCount, "exactly one trigger creates the cut")
}

func TestTriggerManualDifferentKeysCreateDistinctCuts(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})

	clock := at(12, 0)
	coord.now = func() time.Time { return clock }

	first, created, err := coord.TriggerManual(context.Background(), "maria", "", "k1")
	require.NoError(t, err)
	assert.True(t, created)

	clock = at(12, 5)
	second, created, err := coord.TriggerManual(context.Background(), "maria", "", "k2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestTriggerManualFallbackKeyIncludesActor(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})
	coord.now = func() time.Time { return at(12, 0) }

	first, created, err := coord.TriggerManual(context.Background(), "maria", "", "")
	require.NoError(t, err)
	assert.True(t, created)

	// Same minute, same actor: replay.
	replayed, created, err := coord.TriggerManual(context.Background(), "maria", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, replayed.ID)

	// Same minute, different actor: a new cut.
	other, created, err := coord.TriggerManual(context.Background(), "jose", "", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestTriggerManualRequiresActor(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})

	_, _, err := coord.TriggerManual(context.Background(), "", "", "k1")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestTriggerAutomaticDuplicateWindowAbsorbed(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{records: []model.TransactionRecord{
		sale(at(8, 0), "10.00", "0", "cash", "pos", "", 1),
	}})
	coord.now = func() time.Time { return at(12, 0) }

	first, created, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.CutKindAutomatic, first.Kind)
	assert.Equal(t, model.CutStatusClosed, first.Status)

	// The cursor advanced to 12:00, so the duplicate fire has nothing left
	// to cut and is absorbed.
	second, created, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestTriggerAutomaticWindowsChain(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})

	clock := at(12, 0)
	coord.now = func() time.Time { return clock }

	first, _, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at(0, 0), first.WindowStart, "first window starts at the beginning of the day")
	assert.Equal(t, at(12, 0), first.WindowEnd)

	clock = at(18, 0)
	second, created, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.WindowEnd, second.WindowStart, "windows must be contiguous")
	assert.Equal(t, at(18, 0), second.WindowEnd)
}

func TestTriggerAutomaticFirstFireAtDayBoundary(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})
	// Cursor is zero and now is exactly the start of the day, so the
	// computed window is degenerate with nothing persisted yet to absorb
	// into: a one-second empty cut must still be created, not an error.
	coord.now = func() time.Time { return at(0, 0) }

	cut, created, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, cut.EmptyPeriod)
	assert.Equal(t, at(0, 0), cut.WindowStart)
	assert.Equal(t, at(0, 0).Add(time.Second), cut.WindowEnd)
}

func TestTriggerAutomaticDoesNotAbsorbDrawerCut(t *testing.T) {
	store := repository.NewFileLedgerStore(filepath.Join(t.TempDir(), "cuts.json"))
	ctx := context.Background()

	drawer, err := store.TryOpen(ctx, dec("100.00"), "maria")
	require.NoError(t, err)
	closed, err := store.Close(ctx, drawer.ID, dec("100.00"), "maria")
	require.NoError(t, err)

	// The cursor seeds from the drawer cut and the fire lands on its exact
	// close instant. The drawer cut must not be reported as the cut for
	// this window; a fresh automatic cut is created instead.
	coord := NewCutCoordinator(store, NewAggregator(&fakeSource{}), nil)
	require.NoError(t, coord.LoadCursor(ctx))
	coord.now = func() time.Time { return closed.WindowEnd }

	cut, created, err := coord.TriggerAutomatic(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.CutKindAutomatic, cut.Kind)
	assert.NotEqual(t, closed.ID, cut.ID)
}

func TestTriggerAutomaticEmptyPeriodTagged(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})
	coord.now = func() time.Time { return at(12, 0) }

	cut, created, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, cut.EmptyPeriod)
	assert.Equal(t, 0, cut.Totals.RecordCount)
	assert.True(t, cut.ExpectedAmount.IsZero())
}

func TestLoadCursorResumesFromLatestCut(t *testing.T) {
	store := repository.NewFileLedgerStore(filepath.Join(t.TempDir(), "cuts.json"))
	src := &fakeSource{}

	coord := NewCutCoordinator(store, NewAggregator(src), nil)
	coord.now = func() time.Time { return at(12, 0) }
	_, _, err := coord.TriggerAutomatic(context.Background())
	require.NoError(t, err)

	// A fresh coordinator over the same store picks up where the last one
	// stopped, as after a process restart.
	restarted := NewCutCoordinator(store, NewAggregator(src), nil)
	restarted.now = func() time.Time { return at(18, 0) }
	require.NoError(t, restarted.LoadCursor(context.Background()))

	cut, created, err := restarted.TriggerAutomatic(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, at(12, 0), cut.WindowStart)
}

func TestLoadCursorEmptyStore(t *testing.T) {
	coord := newTestCoordinator(t, &fakeSource{})
	assert.NoError(t, coord.LoadCursor(context.Background()))
}
