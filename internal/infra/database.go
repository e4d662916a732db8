package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cortepos/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate,
// then applies the idempotent SQL patches GORM cannot express — in
// particular the partial unique indexes that make the cash-cut invariants a
// storage-layer guarantee rather than an application-level check.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.CashCut{},
		&model.LedgerEntry{},
		&model.TransactionRecord{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle.
// Each statement uses IF NOT EXISTS semantics so re-running on an already
// patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one non-deleted open cut, enforced by the engine itself:
		// a concurrent second open fails with a uniqueness violation that the
		// store translates to a conflict.
		{"single open cut partial index", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_cuts_single_open
    ON cash_cuts ((1))
    WHERE status = 'open' AND is_deleted = false`},

		// One automatic cut per minute-truncated window.
		{"automatic window dedupe index", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_cuts_auto_window
    ON cash_cuts (window_key)
    WHERE kind = 'automatic' AND is_deleted = false`},

		// One cut per idempotency token.
		{"idempotency key dedupe index", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_cuts_idempotency
    ON cash_cuts (idempotency_key)
    WHERE idempotency_key <> '' AND is_deleted = false`},

		// Window-range queries for listings and the aggregator.
		{"cash cuts window index", `
CREATE INDEX IF NOT EXISTS idx_cash_cuts_window_start
    ON cash_cuts (window_start)
    WHERE is_deleted = false`},
		{"transaction records window index", `
CREATE INDEX IF NOT EXISTS idx_transaction_records_occurred
    ON transaction_records (occurred_at)
    WHERE is_deleted = false`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

// RunMigrations applies the same schema for integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CashCut{},
		&model.LedgerEntry{},
		&model.TransactionRecord{},
	); err != nil {
		return err
	}
	return applySchemaPatches(db)
}
