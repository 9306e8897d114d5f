package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-school-portal/internal/model"
)

func TestMemoryCredentialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCredentialRepository()

	a, err := repo.Create(ctx, model.Credential{Entity: model.EntityTeachers, FullName: "B", Email: "a@x.com", Phone: "1", SchoolName: "S"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)

	t.Run("email unique per entity, case-insensitive", func(t *testing.T) {
		_, err := repo.Create(ctx, model.Credential{Entity: model.EntityTeachers, Email: "A@X.com", Phone: "2"})
		assert.ErrorIs(t, err, model.ErrEmailTaken)

		_, err = repo.Create(ctx, model.Credential{Entity: model.EntityStaff, Email: "a@x.com", Phone: "1", SchoolName: "S"})
		assert.NoError(t, err)
	})

	t.Run("teacher phone unique", func(t *testing.T) {
		_, err := repo.Create(ctx, model.Credential{Entity: model.EntityTeachers, Email: "other@x.com", Phone: "1"})
		assert.ErrorIs(t, err, model.ErrPhoneTaken)
	})

	t.Run("lookups", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, model.EntityTeachers, " A@x.com ")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)

		_, err = repo.FindByID(ctx, model.EntityUsers, a.ID)
		assert.ErrorIs(t, err, model.ErrCredentialNotFound)

		exists, err := repo.ExistsByEmail(ctx, model.EntityUsers, "a@x.com")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = repo.ExistsByPhone(ctx, model.EntityTeachers, "1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("update password", func(t *testing.T) {
		require.NoError(t, repo.UpdatePassword(ctx, model.EntityTeachers, a.ID, "new-hash"))
		found, err := repo.FindByID(ctx, model.EntityTeachers, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", found.PasswordHash)

		assert.ErrorIs(t, repo.UpdatePassword(ctx, model.EntityUsers, a.ID, "x"), model.ErrCredentialNotFound)
	})

	t.Run("list by school", func(t *testing.T) {
		items, err := repo.ListBySchool(ctx, model.EntityTeachers, "S")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, a.ID, items[0].ID)
	})
}
