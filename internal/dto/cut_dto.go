package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"cortepos/internal/model"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type TriggerCutRequest struct {
	Notes          string `json:"notes"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=120"`
}

type OpenDrawerRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
}

type AppendEntryRequest struct {
	CutID       string          `json:"cut_id"       validate:"required,uuid"`
	Type        string          `json:"type"         validate:"required,oneof=sale expense adjustment"`
	Amount      decimal.Decimal `json:"amount"       validate:"required,gt=0"`
	ReferenceID *string         `json:"reference_id" validate:"omitempty,uuid"`
	Note        string          `json:"note"`
}

type CloseDrawerRequest struct {
	CutID         string          `json:"cut_id"         validate:"required,uuid"`
	ClosingAmount decimal.Decimal `json:"closing_amount" validate:"min=0"`
}

type RecordTransactionRequest struct {
	Kind          string          `json:"kind"           validate:"omitempty,oneof=sale expense"`
	OccurredAt    *time.Time      `json:"occurred_at"`
	Total         decimal.Decimal `json:"total"          validate:"required,gt=0"`
	Cost          decimal.Decimal `json:"cost"           validate:"min=0"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	ServiceType   string          `json:"service_type"   validate:"required"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"       validate:"min=0"`
	Revenue       decimal.Decimal `json:"revenue"        validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// TriggerCutResponse wraps the cut with a replay marker so clients can tell
// a fresh cut from an idempotent replay of an earlier trigger.
type TriggerCutResponse struct {
	Cut      *model.CashCut `json:"cut"`
	Replayed bool           `json:"replayed"`
}

type CutListResponse struct {
	Data  []model.CashCut `json:"data"`
	Count int             `json:"count"`
}
