package repository

import (
	"context"
	"sort"
	"sync"

	"go-school-portal/internal/model"
)

type MemoryAuditRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries []model.AuditEntry
	seen    map[string]struct{}
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{seen: map[string]struct{}{}}
}

func (r *MemoryAuditRepository) Log(_ context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.seen[entry.EventID]; dup {
		return nil
	}
	r.seen[entry.EventID] = struct{}{}

	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryAuditRepository) Recent(_ context.Context, entity string, schoolName string, limit int) ([]model.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.AuditEntry, 0)
	for _, e := range r.entries {
		if e.Entity == entity && e.SchoolName == schoolName {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryAuditRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
