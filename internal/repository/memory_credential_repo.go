package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-school-portal/internal/model"
)

// MemoryCredentialRepository mirrors the Postgres constraints in process memory.
// It backs handler and service tests.
type MemoryCredentialRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]model.Credential
}

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{rows: map[int64]model.Credential{}}
}

func (r *MemoryCredentialRepository) Create(_ context.Context, c model.Credential) (model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.Entity != c.Entity {
			continue
		}
		if strings.EqualFold(existing.Email, c.Email) {
			return model.Credential{}, model.ErrEmailTaken
		}
		if model.PhoneMustBeUnique(c.Entity) && existing.Phone == c.Phone {
			return model.Credential{}, model.ErrPhoneTaken
		}
	}

	r.nextID++
	c.ID = r.nextID
	r.rows[c.ID] = c
	return c, nil
}

func (r *MemoryCredentialRepository) FindByEmail(_ context.Context, entity string, email string) (model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, c := range r.rows {
		if c.Entity == entity && strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return model.Credential{}, model.ErrCredentialNotFound
}

func (r *MemoryCredentialRepository) FindByID(_ context.Context, entity string, id int64) (model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.rows[id]
	if !ok || c.Entity != entity {
		return model.Credential{}, model.ErrCredentialNotFound
	}
	return c, nil
}

func (r *MemoryCredentialRepository) ExistsByEmail(ctx context.Context, entity string, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, entity, email)
	if err == model.ErrCredentialNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *MemoryCredentialRepository) ExistsByPhone(_ context.Context, entity string, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	phone = strings.TrimSpace(phone)
	for _, c := range r.rows {
		if c.Entity == entity && c.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryCredentialRepository) UpdatePassword(_ context.Context, entity string, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rows[id]
	if !ok || c.Entity != entity {
		return model.ErrCredentialNotFound
	}
	c.PasswordHash = passwordHash
	c.UpdatedAt = time.Now().UTC()
	r.rows[id] = c
	return nil
}

func (r *MemoryCredentialRepository) ListBySchool(_ context.Context, entity string, schoolName string) ([]model.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Credential, 0)
	for _, c := range r.rows {
		if c.Entity == entity && c.SchoolName == schoolName {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].ID < out[j].ID
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

// Count is used by tests to assert that failed registrations persist nothing.
func (r *MemoryCredentialRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
