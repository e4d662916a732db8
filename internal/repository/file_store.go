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
	"github.com/shopspring/decimal"

	"cortepos/internal/model"
	"cortepos/internal/reconcile"
)

// fileStore is the append-only JSON LedgerStore backend: all cuts live in one
// JSON array that is rewritten atomically (temp file + rename) on every
// mutation. With no database transaction or unique index available, every
// operation is a read-check-modify-write critical section under a single
// in-process mutex, and the duplicate/open checks run inside that section.
//
// The mutex only serializes one process. Two process instances sharing the
// same file can still race; the file backend is a single-instance deployment
// mode (see DESIGN.md).
type fileStore struct {
	path string
	mu   chan struct{} // capacity-1 semaphore, acquired with a timeout
}

const fileLockTimeout = 5 * time.Second

func NewFileLedgerStore(path string) LedgerStore {
	return &fileStore{path: path, mu: make(chan struct{}, 1)}
}

func (s *fileStore) lock(ctx context.Context) error {
	select {
	case s.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, ctx.Err())
	case <-time.After(fileLockTimeout):
		return fmt.Errorf("%w: timed out waiting for store lock", model.ErrStorageUnavailable)
	}
}

func (s *fileStore) unlock() { <-s.mu }

func (s *fileStore) load() ([]model.CashCut, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var cuts []model.CashCut
	if err := json.Unmarshal(data, &cuts); err != nil {
		return nil, fmt.Errorf("ledger file corrupted: %w", err)
	}
	return cuts, nil
}

// save writes the full state to a temp file in the same directory and renames
// it over the target, so readers never observe a half-written array.
func (s *fileStore) save(cuts []model.CashCut) error {
	data, err := json.MarshalIndent(cuts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".cuts-*.json")
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
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *fileStore) TryOpen(ctx context.Context, openingAmount decimal.Decimal, openedBy string) (*model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range cuts {
		if !cuts[i].IsDeleted && cuts[i].Status == model.CutStatusOpen {
			return nil, model.ErrConflict
		}
	}

	now := time.Now().UTC()
	cut := model.CashCut{
		ID:             uuid.New(),
		Kind:           model.CutKindManual,
		Status:         model.CutStatusOpen,
		WindowStart:    now,
		WindowKey:      model.WindowKeyFor(model.CutKindManual, now, now.Add(time.Minute)),
		OpeningAmount:  openingAmount,
		ExpectedAmount: openingAmount,
		CreatedBy:      openedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	cuts = append(cuts, cut)
	if err := s.save(cuts); err != nil {
		return nil, err
	}
	return &cut, nil
}

func (s *fileStore) AppendEntry(ctx context.Context, cutID uuid.UUID, entry *model.LedgerEntry) (*model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(cuts, cutID)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	if cuts[i].Status != model.CutStatusOpen {
		return nil, model.ErrNotOpen
	}

	now := time.Now().UTC()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CashCutID = cutID
	entry.Seq = int64(len(cuts[i].Entries)) + 1
	entry.CreatedAt = now
	cuts[i].Entries = append(cuts[i].Entries, *entry)
	cuts[i].ExpectedAmount = reconcile.ExpectedAmount(cuts[i].OpeningAmount, cuts[i].Entries)
	cuts[i].UpdatedAt = now

	if err := s.save(cuts); err != nil {
		return nil, err
	}
	out := cuts[i]
	return &out, nil
}

func (s *fileStore) Close(ctx context.Context, cutID uuid.UUID, closingAmount decimal.Decimal, closedBy string) (*model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(cuts, cutID)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	if cuts[i].Status != model.CutStatusOpen {
		return nil, model.ErrNotOpen
	}

	now := time.Now().UTC()
	result := reconcile.Reconcile(
		reconcile.ExpectedAmount(cuts[i].OpeningAmount, cuts[i].Entries), closingAmount)

	cuts[i].Status = model.CutStatusClosed
	cuts[i].WindowEnd = now
	cuts[i].WindowKey = model.WindowKeyFor(cuts[i].Kind, cuts[i].WindowStart, now)
	cuts[i].ExpectedAmount = result.Expected
	cuts[i].ClosingAmount = &result.Counted
	cuts[i].Difference = &result.Difference
	cuts[i].ClosedBy = closedBy
	cuts[i].ClosedAt = &now
	cuts[i].UpdatedAt = now

	if err := s.save(cuts); err != nil {
		return nil, err
	}
	out := cuts[i]
	return &out, nil
}

func (s *fileStore) FindOpen(ctx context.Context) (*model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range cuts {
		if !cuts[i].IsDeleted && cuts[i].Status == model.CutStatusOpen {
			out := cuts[i]
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *fileStore) FindByID(ctx context.Context, id uuid.UUID) (*model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(cuts, id); i >= 0 {
		out := cuts[i]
		return &out, nil
	}
	return nil, model.ErrNotFound
}

func (s *fileStore) FindLatest(ctx context.Context) (*model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}
	var latest *model.CashCut
	for i := range cuts {
		c := &cuts[i]
		if c.IsDeleted || c.Status != model.CutStatusClosed {
			continue
		}
		if latest == nil || c.WindowEnd.After(latest.WindowEnd) {
			latest = c
		}
	}
	if latest == nil {
		return nil, model.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (s *fileStore) List(ctx context.Context, f CutFilter) ([]model.CashCut, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []model.CashCut
	for i := range cuts {
		c := cuts[i]
		if c.IsDeleted {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Kind != "" && c.Kind != f.Kind {
			continue
		}
		if !f.From.IsZero() && c.WindowStart.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.WindowStart.Before(f.To) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileStore) PersistClosedSummary(ctx context.Context, cut *model.CashCut) (*model.CashCut, bool, error) {
	if err := s.lock(ctx); err != nil {
		return nil, false, err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return nil, false, err
	}

	// Duplicate check under the same critical section as the write: manual
	// triggers match on idempotency key, automatic ones on window key.
	for i := range cuts {
		c := &cuts[i]
		if c.IsDeleted {
			continue
		}
		if cut.IdempotencyKey != "" {
			if c.IdempotencyKey == cut.IdempotencyKey {
				out := *c
				return &out, false, nil
			}
		} else if c.Kind == cut.Kind && c.WindowKey == cut.WindowKey {
			out := *c
			return &out, false, nil
		}
	}

	now := time.Now().UTC()
	if cut.ID == uuid.Nil {
		cut.ID = uuid.New()
	}
	cut.Status = model.CutStatusClosed
	if cut.CreatedAt.IsZero() {
		cut.CreatedAt = now
	}
	cut.UpdatedAt = now
	if cut.ClosedAt == nil {
		cut.ClosedAt = &now
	}

	cuts = append(cuts, *cut)
	if err := s.save(cuts); err != nil {
		return nil, false, err
	}
	return cut, true, nil
}

func (s *fileStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	cuts, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(cuts, id)
	if i < 0 || cuts[i].Status != model.CutStatusClosed {
		return model.ErrNotFound
	}
	cuts[i].IsDeleted = true
	cuts[i].UpdatedAt = time.Now().UTC()
	return s.save(cuts)
}

func indexOf(cuts []model.CashCut, id uuid.UUID) int {
	for i := range cuts {
		if cuts[i].ID == id && !cuts[i].IsDeleted {
			return i
		}
	}
	return -1
}
