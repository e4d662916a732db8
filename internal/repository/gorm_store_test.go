package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cortepos/internal/model"
)

func newMockedGormStore(t *testing.T) (LedgerStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return NewGormLedgerStore(db), mock
}

// When a concurrent instance wins the insert, the unique violation aborts
// the whole transaction. The winning cut must then be read back on a fresh
// session: re-querying the aborted transaction would only produce another
// error, surfacing a conflict instead of the idempotent replay.
func TestPersistClosedSummaryLostInsertRace(t *testing.T) {
	store, mock := newMockedGormStore(t)

	winnerID := uuid.New()
	uniqueViolation := &pgconn.PgError{Code: "23505", ConstraintName: "uq_cash_cuts_idempotency"}

	mock.ExpectBegin()
	// Pre-insert duplicate check inside the transaction: nothing yet.
	mock.ExpectQuery(`SELECT \* FROM "cash_cuts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// The insert loses the race. Registered both ways so the expectation
	// matches whether the driver round-trips it as a query or an exec.
	mock.ExpectQuery(`INSERT INTO "cash_cuts"`).WillReturnError(uniqueViolation)
	mock.ExpectExec(`INSERT INTO "cash_cuts"`).WillReturnError(uniqueViolation)
	mock.ExpectRollback()
	// Post-rollback re-read on a fresh session finds the winner.
	mock.ExpectQuery(`SELECT \* FROM "cash_cuts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "status", "idempotency_key"}).
			AddRow(winnerID.String(), model.CutKindManual, model.CutStatusClosed, "k1"))

	cut := &model.CashCut{
		Kind:           model.CutKindManual,
		Status:         model.CutStatusClosed,
		WindowStart:    time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		WindowEnd:      time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		WindowKey:      "manual|202608200000|202608201200",
		IdempotencyKey: "k1",
		CreatedBy:      "maria",
		ClosedBy:       "maria",
	}
	persisted, created, err := store.PersistClosedSummary(context.Background(), cut)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winnerID, persisted.ID)
	assert.Equal(t, "k1", persisted.IdempotencyKey)
}

func TestPersistClosedSummaryPreInsertDuplicate(t *testing.T) {
	store, mock := newMockedGormStore(t)

	existingID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "cash_cuts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "status", "idempotency_key"}).
			AddRow(existingID.String(), model.CutKindManual, model.CutStatusClosed, "k1"))
	mock.ExpectCommit()

	cut := &model.CashCut{
		Kind:           model.CutKindManual,
		Status:         model.CutStatusClosed,
		WindowStart:    time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		WindowEnd:      time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		WindowKey:      "manual|202608200000|202608201200",
		IdempotencyKey: "k1",
	}
	persisted, created, err := store.PersistClosedSummary(context.Background(), cut)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existingID, persisted.ID)
}
