package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/ports"
)

// MemoryViewEventRepository keeps view events per article in process memory,
// optionally persisted to a JSON snapshot file.
type MemoryViewEventRepository struct {
	mu     sync.RWMutex
	events map[string][]domain.ViewEvent
	path     string
	dirty    bool
	restored bool
}

var _ ports.ViewEventRepository = (*MemoryViewEventRepository)(nil)

func NewMemoryViewEventRepository() *MemoryViewEventRepository {
	return &MemoryViewEventRepository{events: map[string][]domain.ViewEvent{}}
}

// OpenFileViewEventRepository loads the event snapshot at path when it exists.
func OpenFileViewEventRepository(path string) (*MemoryViewEventRepository, error) {
	repo := NewMemoryViewEventRepository()
	repo.path = path

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return repo, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event snapshot %s: %w", path, err)
	}

	var records []viewEventRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode event snapshot %s: %w", path, err)
	}
	for _, rec := range records {
		e := rec.toDomain()
		repo.events[e.ArticleID] = append(repo.events[e.ArticleID], e)
	}
	repo.restored = true
	return repo, nil
}

func (r *MemoryViewEventRepository) Insert(ctx context.Context, event domain.ViewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ArticleID] = append(r.events[event.ArticleID], event)
	r.dirty = true
	return nil
}

func (r *MemoryViewEventRepository) FindRecent(ctx context.Context, articleID, identifier string, since time.Time) (domain.ViewEvent, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found domain.ViewEvent
	ok := false
	for _, e := range r.events[articleID] {
		if e.Identifier != identifier || e.ViewedAt.Before(since) {
			continue
		}
		if !ok || e.ViewedAt.After(found.ViewedAt) {
			found, ok = e, true
		}
	}
	return found, ok, nil
}

func (r *MemoryViewEventRepository) CountSince(ctx context.Context, since, now time.Time) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64, len(r.events))
	for articleID, events := range r.events {
		for _, e := range events {
			if e.ViewedAt.Before(since) || e.Expired(now) {
				continue
			}
			counts[articleID]++
		}
	}
	return counts, nil
}

func (r *MemoryViewEventRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for articleID, events := range r.events {
		kept := events[:0]
		for _, e := range events {
			if e.Expired(now) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(r.events, articleID)
			continue
		}
		r.events[articleID] = kept
	}
	if removed > 0 {
		r.dirty = true
	}
	return removed, nil
}

// Snapshot writes the events to their file when they changed since the last write.
func (r *MemoryViewEventRepository) Snapshot(ctx context.Context) error {
	if r.path == "" {
		return nil
	}

	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	records := make([]viewEventRecord, 0, len(r.events))
	for _, events := range r.events {
		for _, e := range events {
			records = append(records, viewEventRecordOf(e))
		}
	}
	r.dirty = false
	r.mu.Unlock()

	slices.SortFunc(records, func(a, b viewEventRecord) int {
		if c := a.ViewedAt.Compare(b.ViewedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if err := writeSnapshot(r.path, records); err != nil {
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		return err
	}
	return nil
}

// Fresh reports that no snapshot was loaded and no event was recorded since.
func (r *MemoryViewEventRepository) Fresh() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.restored && len(r.events) == 0
}

// Path returns the snapshot file location.
func (r *MemoryViewEventRepository) Path() string {
	return r.path
}

// Len reports the number of stored events.
func (r *MemoryViewEventRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, events := range r.events {
		n += len(events)
	}
	return n
}

type viewEventRecord struct {
	ID         string    `json:"id"`
	ArticleID  string    `json:"articleId"`
	Identifier string    `json:"identifier"`
	ViewedAt   time.Time `json:"viewedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func viewEventRecordOf(e domain.ViewEvent) viewEventRecord {
	return viewEventRecord{
		ID:         e.ID,
		ArticleID:  e.ArticleID,
		Identifier: e.Identifier,
		ViewedAt:   e.ViewedAt,
		ExpiresAt:  e.ExpiresAt,
	}
}

func (rec viewEventRecord) toDomain() domain.ViewEvent {
	return domain.ViewEvent{
		ID:         rec.ID,
		ArticleID:  rec.ArticleID,
		Identifier: rec.Identifier,
		ViewedAt:   rec.ViewedAt,
		ExpiresAt:  rec.ExpiresAt,
	}
}
