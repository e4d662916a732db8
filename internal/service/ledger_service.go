package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cortepos/internal/model"
	"cortepos/internal/reconcile"
	"cortepos/internal/repository"
)

// LedgerService is the explicit drawer workflow: open with a counted float,
// append typed entries while open, close against a counted amount. All
// invariant enforcement (single open cut, append-only entries, closed
// immutability) sits in the LedgerStore; this layer validates input and
// keeps expected amounts recomputed rather than trusted.
type LedgerService struct {
	store repository.LedgerStore
}

func NewLedgerService(store repository.LedgerStore) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) Open(ctx context.Context, openedBy string, openingAmount decimal.Decimal) (*model.CashCut, error) {
	if openedBy == "" {
		return nil, fmt.Errorf("%w: actor is required", model.ErrValidation)
	}
	if openingAmount.IsNegative() {
		return nil, fmt.Errorf("%w: opening amount must not be negative", model.ErrValidation)
	}
	return s.store.TryOpen(ctx, openingAmount, openedBy)
}

func (s *LedgerService) AppendEntry(ctx context.Context, cutID uuid.UUID, entryType string, amount decimal.Decimal, referenceID *uuid.UUID, note string) (*model.CashCut, error) {
	switch entryType {
	case model.EntryTypeSale, model.EntryTypeExpense, model.EntryTypeAdjustment:
	default:
		return nil, fmt.Errorf("%w: unknown entry type %q", model.ErrValidation, entryType)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: entry amount must not be negative", model.ErrValidation)
	}
	entry := &model.LedgerEntry{
		Type:        entryType,
		Amount:      amount,
		ReferenceID: referenceID,
		Note:        note,
	}
	return s.store.AppendEntry(ctx, cutID, entry)
}

func (s *LedgerService) CloseCut(ctx context.Context, cutID uuid.UUID, closingAmount decimal.Decimal, closedBy string) (*model.CashCut, error) {
	if closedBy == "" {
		return nil, fmt.Errorf("%w: actor is required", model.ErrValidation)
	}
	if closingAmount.IsNegative() {
		return nil, fmt.Errorf("%w: closing amount must not be negative", model.ErrValidation)
	}
	return s.store.Close(ctx, cutID, closingAmount, closedBy)
}

// Active returns the currently open cut with its expected amount recomputed
// from the recorded entries, never read from a stored field.
func (s *LedgerService) Active(ctx context.Context) (*model.CashCut, error) {
	cut, err := s.store.FindOpen(ctx)
	if err != nil {
		return nil, err
	}
	cut.ExpectedAmount = reconcile.ExpectedAmount(cut.OpeningAmount, cut.Entries)
	return cut, nil
}

func (s *LedgerService) Get(ctx context.Context, id uuid.UUID) (*model.CashCut, error) {
	cut, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cut.Status == model.CutStatusOpen {
		cut.ExpectedAmount = reconcile.ExpectedAmount(cut.OpeningAmount, cut.Entries)
	}
	return cut, nil
}

func (s *LedgerService) List(ctx context.Context, f repository.CutFilter) ([]model.CashCut, error) {
	return s.store.List(ctx, f)
}

// CutReport pairs a cut with its reconciliation arithmetic.
type CutReport struct {
	Cut    *model.CashCut   `json:"cut"`
	Result reconcile.Result `json:"result"`
}

// Report returns a cut with its reconciliation result. While the cut is
// still open the counted side mirrors the running expected amount, so the
// difference reads zero until a real count happens at close.
func (s *LedgerService) Report(ctx context.Context, id uuid.UUID) (*CutReport, error) {
	cut, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	counted := cut.ExpectedAmount
	if cut.ClosingAmount != nil {
		counted = *cut.ClosingAmount
	}
	return &CutReport{Cut: cut, Result: reconcile.Reconcile(cut.ExpectedAmount, counted)}, nil
}

// SoftDelete flags a closed cut as deleted. The handler layer restricts this
// to administrators.
func (s *LedgerService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.store.SoftDelete(ctx, id)
}
