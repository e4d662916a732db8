package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortepos/internal/model"
	"cortepos/internal/repository"
)

func newTestLedger(t *testing.T) *LedgerService {
	t.Helper()
	return NewLedgerService(repository.NewFileLedgerStore(filepath.Join(t.TempDir(), "cuts.json")))
}

func TestDrawerLifecycle(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("1000.00"))
	require.NoError(t, err)
	assert.Equal(t, model.CutStatusOpen, cut.Status)
	assert.True(t, cut.ExpectedAmount.Equal(dec("1000.00")))

	cut, err = svc.AppendEntry(ctx, cut.ID, model.EntryTypeSale, dec("250.50"), nil, "morning sales")
	require.NoError(t, err)
	assert.True(t, cut.ExpectedAmount.Equal(dec("1250.50")), "expected %s", cut.ExpectedAmount)

	cut, err = svc.AppendEntry(ctx, cut.ID, model.EntryTypeExpense, dec("50.00"), nil, "supplies")
	require.NoError(t, err)
	assert.True(t, cut.ExpectedAmount.Equal(dec("1200.50")))

	closed, err := svc.CloseCut(ctx, cut.ID, dec("1195.25"), "maria")
	require.NoError(t, err)
	assert.Equal(t, model.CutStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosingAmount)
	require.NotNil(t, closed.Difference)
	assert.True(t, closed.ClosingAmount.Equal(dec("1195.25")))
	assert.True(t, closed.Difference.Equal(dec("-5.25")), "difference %s", closed.Difference)
	assert.Equal(t, "maria", closed.ClosedBy)
	require.NotNil(t, closed.ClosedAt)
	assert.Len(t, closed.Entries, 2)
}

func TestOpenWhileAnotherOpenConflicts(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "maria", dec("500.00"))
	require.NoError(t, err)

	_, err = svc.Open(ctx, "jose", dec("300.00"))
	assert.True(t, errors.Is(err, model.ErrConflict))
}

func TestOpenValidation(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "", dec("100.00"))
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = svc.Open(ctx, "maria", dec("-1.00"))
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestAppendAfterCloseRejected(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("100.00"))
	require.NoError(t, err)
	_, err = svc.CloseCut(ctx, cut.ID, dec("100.00"), "maria")
	require.NoError(t, err)

	_, err = svc.AppendEntry(ctx, cut.ID, model.EntryTypeSale, dec("10.00"), nil, "")
	assert.True(t, errors.Is(err, model.ErrNotOpen))
}

func TestCloseTwiceRejected(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("100.00"))
	require.NoError(t, err)
	_, err = svc.CloseCut(ctx, cut.ID, dec("100.00"), "maria")
	require.NoError(t, err)

	_, err = svc.CloseCut(ctx, cut.ID, dec("100.00"), "maria")
	assert.True(t, errors.Is(err, model.ErrNotOpen))
}

func TestAppendEntryValidation(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("100.00"))
	require.NoError(t, err)

	_, err = svc.AppendEntry(ctx, cut.ID, "refund", dec("10.00"), nil, "")
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = svc.AppendEntry(ctx, cut.ID, model.EntryTypeSale, dec("-10.00"), nil, "")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestAppendEntryUnknownCut(t *testing.T) {
	svc := newTestLedger(t)

	_, err := svc.AppendEntry(context.Background(), uuid.New(), model.EntryTypeSale, dec("10.00"), nil, "")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestActiveRecomputesExpectedAmount(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("200.00"))
	require.NoError(t, err)
	_, err = svc.AppendEntry(ctx, cut.ID, model.EntryTypeAdjustment, dec("15.00"), nil, "till correction")
	require.NoError(t, err)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, cut.ID, active.ID)
	assert.True(t, active.ExpectedAmount.Equal(dec("215.00")))
}

func TestActiveWithNoOpenCut(t *testing.T) {
	svc := newTestLedger(t)

	_, err := svc.Active(context.Background())
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSoftDeleteHidesClosedCut(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("100.00"))
	require.NoError(t, err)

	// Open cuts cannot be deleted.
	err = svc.SoftDelete(ctx, cut.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = svc.CloseCut(ctx, cut.ID, dec("100.00"), "maria")
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, cut.ID))

	_, err = svc.Get(ctx, cut.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	cuts, err := svc.List(ctx, repository.CutFilter{})
	require.NoError(t, err)
	assert.Empty(t, cuts)
}

func TestReportOpenAndClosed(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("1000.00"))
	require.NoError(t, err)
	_, err = svc.AppendEntry(ctx, cut.ID, model.EntryTypeSale, dec("250.50"), nil, "")
	require.NoError(t, err)

	// Open cut: counted mirrors expected, difference zero.
	report, err := svc.Report(ctx, cut.ID)
	require.NoError(t, err)
	assert.True(t, report.Result.Expected.Equal(dec("1250.50")))
	assert.True(t, report.Result.Difference.IsZero())

	_, err = svc.CloseCut(ctx, cut.ID, dec("1245.00"), "maria")
	require.NoError(t, err)

	report, err = svc.Report(ctx, cut.ID)
	require.NoError(t, err)
	assert.True(t, report.Result.Counted.Equal(dec("1245.00")))
	assert.True(t, report.Result.Difference.Equal(dec("-5.50")))
}

func TestListFilters(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	cut, err := svc.Open(ctx, "maria", dec("100.00"))
	require.NoError(t, err)
	_, err = svc.CloseCut(ctx, cut.ID, dec("100.00"), "maria")
	require.NoError(t, err)

	second, err := svc.Open(ctx, "jose", dec("50.00"))
	require.NoError(t, err)

	open, err := svc.List(ctx, repository.CutFilter{Status: model.CutStatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	closed, err := svc.List(ctx, repository.CutFilter{Status: model.CutStatusClosed})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, cut.ID, closed[0].ID)

	all, err := svc.List(ctx, repository.CutFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
