package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cortepos/internal/model"
	"cortepos/internal/repository"
)

// RecordInput is one finalized sale or expense to append to the stream.
type RecordInput struct {
	Kind          string
	OccurredAt    time.Time
	Total         decimal.Decimal
	Cost          decimal.Decimal
	PaymentMethod string
	ServiceType   string
	ProductName   string
	Quantity      int
	Revenue       decimal.Decimal
	CreatedBy     string
}

// TransactionService records point-of-sale and coworking transactions into
// the append-only stream the aggregator reads. Records are never updated or
// removed here; corrections happen as ledger adjustments on a cut.
type TransactionService struct {
	repo repository.TransactionRepository
}

func NewTransactionService(repo repository.TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

func (s *TransactionService) Record(ctx context.Context, in RecordInput) (*model.TransactionRecord, error) {
	if in.Kind == "" {
		in.Kind = model.RecordKindSale
	}
	if in.Kind != model.RecordKindSale && in.Kind != model.RecordKindExpense {
		return nil, fmt.Errorf("%w: unknown record kind %q", model.ErrValidation, in.Kind)
	}
	if in.Total.IsNegative() || in.Cost.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", model.ErrValidation)
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now().UTC()
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	if in.Revenue.IsZero() {
		in.Revenue = in.Total
	}

	rec := &model.TransactionRecord{
		Kind:          in.Kind,
		OccurredAt:    in.OccurredAt.UTC(),
		Total:         in.Total,
		Cost:          in.Cost,
		PaymentMethod: in.PaymentMethod,
		ServiceType:   in.ServiceType,
		ProductName:   in.ProductName,
		Quantity:      in.Quantity,
		Revenue:       in.Revenue,
		CreatedBy:     in.CreatedBy,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
