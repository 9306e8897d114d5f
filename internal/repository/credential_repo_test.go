//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-school-portal/internal/database"
	"go-school-portal/internal/model"
)

func newTestRepository(t *testing.T) *CredentialRepository {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	return NewCredentialRepository(db.Pool)
}

func newCredential(entity string, email string, phone string) model.Credential {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.Credential{
		Entity:       entity,
		FullName:     "Grace Hopper",
		Email:        email,
		Phone:        phone,
		SchoolName:   "Integration High",
		Role:         model.RoleTeacher,
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuuJ7wq0Qm8yqz7d8kE4s1P9q7Y0nq6J2",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCredentialRepository_CreateAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	email := fmt.Sprintf("grace-%d@school.test", time.Now().UnixNano())

	created, err := repo.Create(ctx, newCredential(model.EntityStaff, email, "555-0100"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := repo.FindByEmail(ctx, model.EntityStaff, "  "+email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, created.PasswordHash, found.PasswordHash)

	byID, err := repo.FindByID(ctx, model.EntityStaff, created.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)

	_, err = repo.FindByID(ctx, model.EntityUsers, created.ID)
	assert.ErrorIs(t, err, model.ErrCredentialNotFound)
}

func TestCredentialRepository_UniqueEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	email := fmt.Sprintf("dup-%d@school.test", time.Now().UnixNano())

	_, err := repo.Create(ctx, newCredential(model.EntityUsers, email, "1"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newCredential(model.EntityUsers, email, "2"))
	assert.ErrorIs(t, err, model.ErrEmailTaken)

	exists, err := repo.ExistsByEmail(ctx, model.EntityUsers, email)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCredentialRepository_UniqueTeacherPhone(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	phone := fmt.Sprintf("+1-%d", suffix)

	_, err := repo.Create(ctx, newCredential(model.EntityTeachers, fmt.Sprintf("t1-%d@school.test", suffix), phone))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newCredential(model.EntityTeachers, fmt.Sprintf("t2-%d@school.test", suffix), phone))
	assert.ErrorIs(t, err, model.ErrPhoneTaken)
}

func TestCredentialRepository_UpdatePasswordAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	email := fmt.Sprintf("list-%d@school.test", time.Now().UnixNano())

	created, err := repo.Create(ctx, newCredential(model.EntityStaff, email, "9"))
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePassword(ctx, model.EntityStaff, created.ID, "$2a$12$replaced"))
	found, err := repo.FindByID(ctx, model.EntityStaff, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$replaced", found.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, model.EntityStaff, -1, "x"), model.ErrCredentialNotFound)

	items, err := repo.ListBySchool(ctx, model.EntityStaff, "Integration High")
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}
