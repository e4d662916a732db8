package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cut kinds.
const (
	CutKindManual    = "manual"
	CutKindAutomatic = "automatic"
)

// Cut statuses.
const (
	CutStatusOpen   = "open"
	CutStatusClosed = "closed"
)

// Ledger entry types.
const (
	EntryTypeSale       = "sale"
	EntryTypeExpense    = "expense"
	EntryTypeAdjustment = "adjustment"
)

// CashCut is the reconciliation record for a bounded window of transactions.
// Two shapes share this entity: a drawer cut is created open, accumulates
// ledger entries, and is closed with a counted amount; a period-summary cut
// is born closed and carries aggregated totals instead of a drawer count.
//
// At most one non-deleted cut is open at any instant. Enforcement lives in
// the LedgerStore backends (partial unique index / store mutex), not here.
type CashCut struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Kind   string    `gorm:"type:varchar(20);not null;index" json:"kind"`
	Status string    `gorm:"type:varchar(20);not null;default:'open'" json:"status"`

	// Half-open interval [WindowStart, WindowEnd) of covered transactions.
	// WindowEnd stays zero while a drawer cut is open and is fixed at close.
	WindowStart time.Time `gorm:"not null" json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	// WindowKey is the minute-truncated (kind, window) dedupe key. A partial
	// unique index on it makes the exactly-once-per-trigger invariant a
	// storage-level guarantee on the transactional backend.
	WindowKey string `gorm:"type:varchar(80);not null" json:"-"`

	// IdempotencyKey is set for manual triggers: the caller-supplied token,
	// or the derived (actor, notes, minute) fallback when none was supplied.
	IdempotencyKey string `gorm:"type:varchar(160)" json:"idempotency_key,omitempty"`

	OpeningAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"opening_amount"`
	// ExpectedAmount is derived data: opening plus the signed entry sum, or
	// the aggregated income for period-summary cuts. Always reproducible by
	// re-summing Entries/Totals; never hand-edited.
	ExpectedAmount decimal.Decimal  `gorm:"type:decimal(14,2)" json:"expected_amount"`
	ClosingAmount  *decimal.Decimal `gorm:"type:decimal(14,2)" json:"closing_amount,omitempty"`
	Difference     *decimal.Decimal `gorm:"type:decimal(14,2)" json:"difference,omitempty"`

	Totals *CutTotals `gorm:"type:jsonb;serializer:json" json:"totals,omitempty"`

	// EmptyPeriod marks an automatic cut whose window held no records, so
	// monitoring can tell "no activity" apart from "lost data".
	EmptyPeriod bool `gorm:"not null;default:false" json:"empty_period"`

	Notes     string `json:"notes,omitempty"`
	CreatedBy string `gorm:"type:varchar(80);not null" json:"created_by"`
	ClosedBy  string `gorm:"type:varchar(80)" json:"closed_by,omitempty"`

	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	Entries []LedgerEntry `gorm:"foreignKey:CashCutID" json:"entries"`
}

func (CashCut) TableName() string { return "cash_cuts" }

// LedgerEntry is one typed cash-affecting event recorded against an open cut.
// Entries are append-only: anulations are recorded as inverse adjustments,
// never as updates or deletes.
type LedgerEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CashCutID uuid.UUID `gorm:"type:uuid;index;not null" json:"cash_cut_id"`
	// Seq is a monotonic insertion sequence: replay order must be exact,
	// and created_at alone cannot break ties between entries written in
	// the same timestamp tick.
	Seq    int64           `gorm:"autoIncrement;not null" json:"seq"`
	Type   string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	// ReferenceID links to the originating transaction record, when any.
	ReferenceID *uuid.UUID `gorm:"type:uuid" json:"reference_id,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// WindowKeyFor builds the minute-truncated dedupe key for a (kind, window)
// pair. Two scheduler fires landing in the same minute collapse to one key.
func WindowKeyFor(kind string, windowStart, windowEnd time.Time) string {
	return fmt.Sprintf("%s|%s|%s",
		kind,
		windowStart.UTC().Truncate(time.Minute).Format("200601021504"),
		windowEnd.UTC().Truncate(time.Minute).Format("200601021504"))
}
