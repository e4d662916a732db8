package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cortepos/internal/model"
)

// CutFilter narrows List results.
type CutFilter struct {
	Status string
	Kind   string
	From   time.Time
	To     time.Time
	Limit  int
}

// LedgerStore persists cash cuts and their append-only entry lists. Two
// backends implement it — a transactional Postgres store and a flat JSON
// file store — with identical external semantics: creation plus duplicate
// detection is one atomic unit, and every mutation commits its full state
// or nothing.
//
// Failures are reported as the typed variants in internal/model
// (ErrConflict, ErrNotFound, ErrNotOpen, ErrStorageUnavailable); callers
// must handle each case.
type LedgerStore interface {
	// TryOpen creates a new open cut with the given opening amount, or
	// returns ErrConflict if a non-deleted open cut already exists.
	TryOpen(ctx context.Context, openingAmount decimal.Decimal, openedBy string) (*model.CashCut, error)

	// AppendEntry adds one ledger entry to an open cut. Entries keep
	// insertion order. Returns ErrNotFound / ErrNotOpen.
	AppendEntry(ctx context.Context, cutID uuid.UUID, entry *model.LedgerEntry) (*model.CashCut, error)

	// Close seals an open cut with a counted closing amount, computing the
	// expected amount and difference from the recorded entries.
	Close(ctx context.Context, cutID uuid.UUID, closingAmount decimal.Decimal, closedBy string) (*model.CashCut, error)

	// FindOpen returns the single open cut, or ErrNotFound.
	FindOpen(ctx context.Context) (*model.CashCut, error)

	FindByID(ctx context.Context, id uuid.UUID) (*model.CashCut, error)

	// FindLatest returns the non-deleted cut with the most recent window
	// end, used to seed the coordinator's cursor at startup.
	FindLatest(ctx context.Context) (*model.CashCut, error)

	List(ctx context.Context, f CutFilter) ([]model.CashCut, error)

	// PersistClosedSummary stores a period-summary cut (born closed).
	// Inside the same critical section it first checks for an existing
	// non-deleted cut with the same idempotency key or window key; when one
	// exists it is returned with created=false and nothing is written.
	PersistClosedSummary(ctx context.Context, cut *model.CashCut) (persisted *model.CashCut, created bool, err error)

	// SoftDelete flags a closed cut as deleted. Deleted cuts stay on disk
	// for audit but drop out of every query and invariant check.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
