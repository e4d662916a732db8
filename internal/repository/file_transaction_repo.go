package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"cortepos/internal/model"
)

// fileTransactionRepo keeps the transaction stream in one JSON array,
// rewritten atomically like the file ledger store. Same single-process
// limitation applies.
type fileTransactionRepo struct {
	path string
	mu   chan struct{}
}

func NewFileTransactionRepository(path string) TransactionRepository {
	return &fileTransactionRepo{path: path, mu: make(chan struct{}, 1)}
}

func (r *fileTransactionRepo) lock(ctx context.Context) error {
	select {
	case r.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, ctx.Err())
	case <-time.After(fileLockTimeout):
		return fmt.Errorf("%w: timed out waiting for store lock", model.ErrStorageUnavailable)
	}
}

func (r *fileTransactionRepo) unlock() { <-r.mu }

func (r *fileTransactionRepo) load() ([]model.TransactionRecord, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []model.TransactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("transaction file corrupted: %w", err)
	}
	return records, nil
}

func (r *fileTransactionRepo) save(records []model.TransactionRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transaction file: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".records-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *fileTransactionRepo) Create(ctx context.Context, rec *model.TransactionRecord) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now().UTC()
	records = append(records, *rec)
	return r.save(records)
}

func (r *fileTransactionRepo) ListRecords(ctx context.Context, windowStart, windowEnd time.Time) ([]model.TransactionRecord, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	var out []model.TransactionRecord
	for _, rec := range records {
		if rec.IsDeleted {
			continue
		}
		if rec.OccurredAt.Before(windowStart) || !rec.OccurredAt.Before(windowEnd) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].OccurredAt.Before(out[b].OccurredAt) })
	return out, nil
}
