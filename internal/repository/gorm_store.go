package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cortepos/internal/model"
	"cortepos/internal/reconcile"
)

// gormStore is the transactional LedgerStore backend. Concurrency safety is
// delegated to Postgres: every mutation runs inside a transaction, the
// single-open invariant is a partial unique index (see infra schema patches),
// and a concurrent duplicate insert surfaces as a uniqueness violation that
// is translated to ErrConflict here. Application code never wins a race the
// storage engine would lose.
type gormStore struct{ db *gorm.DB }

func NewGormLedgerStore(db *gorm.DB) LedgerStore { return &gormStore{db: db} }

func (s *gormStore) TryOpen(ctx context.Context, openingAmount decimal.Decimal, openedBy string) (*model.CashCut, error) {
	now := time.Now().UTC()
	cut := &model.CashCut{
		ID:             uuid.New(),
		Kind:           model.CutKindManual,
		Status:         model.CutStatusOpen,
		WindowStart:    now,
		WindowKey:      model.WindowKeyFor(model.CutKindManual, now, now.Add(time.Minute)),
		OpeningAmount:  openingAmount,
		ExpectedAmount: openingAmount,
		CreatedBy:      openedBy,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(cut).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return cut, nil
}

func (s *gormStore) AppendEntry(ctx context.Context, cutID uuid.UUID, entry *model.LedgerEntry) (*model.CashCut, error) {
	var cut model.CashCut
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_deleted = false").First(&cut, "id = ?", cutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		if cut.Status != model.CutStatusOpen {
			return model.ErrNotOpen
		}

		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.CashCutID = cut.ID
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}

		if err := loadEntries(tx, &cut); err != nil {
			return err
		}
		cut.ExpectedAmount = reconcile.ExpectedAmount(cut.OpeningAmount, cut.Entries)
		return tx.Model(&model.CashCut{}).Where("id = ?", cut.ID).
			Update("expected_amount", cut.ExpectedAmount).Error
	})
	if err != nil {
		return nil, err
	}
	return &cut, nil
}

func (s *gormStore) Close(ctx context.Context, cutID uuid.UUID, closingAmount decimal.Decimal, closedBy string) (*model.CashCut, error) {
	var cut model.CashCut
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_deleted = false").First(&cut, "id = ?", cutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		if cut.Status != model.CutStatusOpen {
			return model.ErrNotOpen
		}
		if err := loadEntries(tx, &cut); err != nil {
			return err
		}

		now := time.Now().UTC()
		result := reconcile.Reconcile(
			reconcile.ExpectedAmount(cut.OpeningAmount, cut.Entries), closingAmount)

		cut.Status = model.CutStatusClosed
		cut.WindowEnd = now
		cut.WindowKey = model.WindowKeyFor(cut.Kind, cut.WindowStart, now)
		cut.ExpectedAmount = result.Expected
		cut.ClosingAmount = &result.Counted
		cut.Difference = &result.Difference
		cut.ClosedBy = closedBy
		cut.ClosedAt = &now

		return tx.Model(&model.CashCut{}).Where("id = ?", cut.ID).Updates(map[string]any{
			"status":          cut.Status,
			"window_end":      cut.WindowEnd,
			"window_key":      cut.WindowKey,
			"expected_amount": cut.ExpectedAmount,
			"closing_amount":  result.Counted,
			"difference":      result.Difference,
			"closed_by":       closedBy,
			"closed_at":       now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &cut, nil
}

func (s *gormStore) FindOpen(ctx context.Context) (*model.CashCut, error) {
	var cut model.CashCut
	err := s.db.WithContext(ctx).
		Where("status = ? AND is_deleted = false", model.CutStatusOpen).
		First(&cut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if err := loadEntries(s.db.WithContext(ctx), &cut); err != nil {
		return nil, err
	}
	return &cut, nil
}

func (s *gormStore) FindByID(ctx context.Context, id uuid.UUID) (*model.CashCut, error) {
	var cut model.CashCut
	err := s.db.WithContext(ctx).
		Where("is_deleted = false").First(&cut, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if err := loadEntries(s.db.WithContext(ctx), &cut); err != nil {
		return nil, err
	}
	return &cut, nil
}

func (s *gormStore) FindLatest(ctx context.Context) (*model.CashCut, error) {
	var cut model.CashCut
	err := s.db.WithContext(ctx).
		Where("is_deleted = false AND status = ?", model.CutStatusClosed).
		Order("window_end DESC").First(&cut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return &cut, nil
}

func (s *gormStore) List(ctx context.Context, f CutFilter) ([]model.CashCut, error) {
	q := s.db.WithContext(ctx).Model(&model.CashCut{}).Where("is_deleted = false")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if !f.From.IsZero() {
		q = q.Where("window_start >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("window_start < ?", f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var cuts []model.CashCut
	if err := q.Order("created_at DESC").Limit(limit).Find(&cuts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return cuts, nil
}

func (s *gormStore) PersistClosedSummary(ctx context.Context, cut *model.CashCut) (*model.CashCut, bool, error) {
	var persisted *model.CashCut
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing, err := findDuplicate(tx, cut); err != nil {
			return err
		} else if existing != nil {
			persisted = existing
			return nil
		}

		if cut.ID == uuid.Nil {
			cut.ID = uuid.New()
		}
		cut.Status = model.CutStatusClosed
		if err := tx.Create(cut).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost an insert race to another instance. The unique
				// violation aborted the server-side transaction, so the
				// winner cannot be read here; propagate and re-read below.
				return err
			}
			return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		persisted = cut
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, ferr := findDuplicate(s.db.WithContext(ctx), cut)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, model.ErrConflict
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return persisted, created, nil
}

func (s *gormStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.CashCut{}).
		Where("id = ? AND is_deleted = false AND status = ?", id, model.CutStatusClosed).
		Update("is_deleted", true)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// findDuplicate looks up an existing non-deleted cut for the same trigger.
// Manual triggers always carry an idempotency key and match on it; automatic
// triggers match on the minute-truncated window key. The pre-insert check
// runs inside the insert transaction; the post-rollback re-read runs on a
// fresh session because Postgres rejects queries on an aborted transaction.
func findDuplicate(tx *gorm.DB, cut *model.CashCut) (*model.CashCut, error) {
	var existing model.CashCut
	q := tx.Where("is_deleted = false")
	if cut.IdempotencyKey != "" {
		q = q.Where("idempotency_key = ?", cut.IdempotencyKey)
	} else {
		q = q.Where("kind = ? AND window_key = ?", cut.Kind, cut.WindowKey)
	}
	err := q.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return &existing, nil
}

func loadEntries(tx *gorm.DB, cut *model.CashCut) error {
	err := tx.Where("cash_cut_id = ?", cut.ID).
		Order("seq ASC").Find(&cut.Entries).Error
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}
