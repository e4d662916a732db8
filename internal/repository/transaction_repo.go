package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cortepos/internal/model"
)

// TransactionSource supplies the immutable transaction stream the period
// aggregator reduces. Implementations must return only finalized
// (non-deleted) records and be repeatable: two reads of the same fixed
// window yield the same set.
type TransactionSource interface {
	ListRecords(ctx context.Context, windowStart, windowEnd time.Time) ([]model.TransactionRecord, error)
}

// TransactionRepository is the writable side used by the recording endpoint.
type TransactionRepository interface {
	TransactionSource
	Create(ctx context.Context, rec *model.TransactionRecord) error
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, rec *model.TransactionRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

// ListRecords returns records with occurred_at in [windowStart, windowEnd),
// ordered by occurrence so downstream tie-breaks are stable.
func (r *transactionRepo) ListRecords(ctx context.Context, windowStart, windowEnd time.Time) ([]model.TransactionRecord, error) {
	var records []model.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("is_deleted = false AND occurred_at >= ? AND occurred_at < ?", windowStart, windowEnd).
		Order("occurred_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return records, nil
}
