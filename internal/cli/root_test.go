package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-school-portal/internal/config"
	"go-school-portal/internal/event"
	"go-school-portal/internal/model"
	"go-school-portal/internal/repository"
)

type harness struct {
	store    *repository.MemoryCredentialRepository
	audit    *repository.MemoryAuditRepository
	migrated bool
	closed   bool
}

// setup swaps the package seams for in-memory fakes and restores them after the test.
func setup(t *testing.T, passwords ...string) *harness {
	t.Helper()

	h := &harness{
		store: repository.NewMemoryCredentialRepository(),
		audit: repository.NewMemoryAuditRepository(),
	}

	origLoad, origConnect, origRead := loadConfigFunc, connectFunc, readPasswordFunc
	t.Cleanup(func() {
		loadConfigFunc, connectFunc, readPasswordFunc = origLoad, origConnect, origRead
	})

	loadConfigFunc = func() (*config.Config, error) {
		return &config.Config{
			JWTSecret:       "cli-test-secret-cli-test-secret-cli",
			JWTIssuer:       "school-portal",
			SessionTokenTTL: time.Hour,
			BcryptCost:      model.MinBcryptCost,
			LogLevel:        "error",
			LogFormat:       "json",
		}, nil
	}
	connectFunc = func(context.Context, *config.Config) (*backend, error) {
		return &backend{
			store: h.store,
			audit: h.audit,
			migrate: func(context.Context) error {
				h.migrated = true
				return nil
			},
			close: func() { h.closed = true },
		}, nil
	}

	queue := append([]string(nil), passwords...)
	readPasswordFunc = func(int) ([]byte, error) {
		if len(queue) == 0 {
			return nil, errors.New("no more input")
		}
		next := queue[0]
		queue = queue[1:]
		return []byte(next), nil
	}

	return h
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	h := setup(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
	assert.True(t, h.migrated)
	assert.True(t, h.closed)
}

func TestCreateCommand(t *testing.T) {
	h := setup(t, "longenough1", "longenough1")

	out, err := run(t, "create",
		"--entity", "staff",
		"--name", "Ada Lovelace",
		"--email", "Ada@North.example",
		"--phone", "555-0100",
		"--school", "North High",
		"--role", "admin",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "created staff #1")
	assert.NotContains(t, out, "longenough1")

	stored, err := h.store.FindByEmail(context.Background(), model.EntityStaff, "ada@north.example")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough1")))
}

func TestCreateCommand_PasswordMismatch(t *testing.T) {
	h := setup(t, "longenough1", "different11")

	_, err := run(t, "create", "--name", "A", "--email", "a@x.com", "--phone", "1", "--school", "S")
	assert.ErrorIs(t, err, errPasswordMismatch)
	assert.Equal(t, 0, h.store.Count())
}

func TestCreateCommand_RequiresFlags(t *testing.T) {
	setup(t)

	_, err := run(t, "create", "--email", "a@x.com")
	assert.Error(t, err)
}

func TestResetPasswordCommand(t *testing.T) {
	h := setup(t, "longenough1", "longenough1", "replacement1", "replacement1")

	_, err := run(t, "create", "--entity", "teachers", "--name", "T", "--email", "t@x.com", "--phone", "9", "--school", "S", "--role", "teacher")
	require.NoError(t, err)

	out, err := run(t, "reset-password", "--entity", "teachers", "--email", "t@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "password reset for t@x.com")

	stored, err := h.store.FindByEmail(context.Background(), model.EntityTeachers, "t@x.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("replacement1")))

	entries, err := h.audit.Recent(context.Background(), model.EntityTeachers, "S", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(event.TypePasswordReset), entries[0].Action)
	assert.Equal(t, string(event.TypeCredentialRegistered), entries[1].Action)
	for _, e := range entries {
		assert.Equal(t, stored.ID, e.UserID)
		assert.Equal(t, "t@x.com", e.Email)
	}
}

func TestResetPasswordCommand_UnknownAccountLeavesNoAuditEntry(t *testing.T) {
	h := setup(t, "replacement1", "replacement1")

	_, err := run(t, "reset-password", "--entity", "staff", "--email", "ghost@x.com")
	require.Error(t, err)
	assert.Equal(t, 0, h.audit.Len())
}

func TestResetPasswordCommand_EmptyPassword(t *testing.T) {
	setup(t, "")

	_, err := run(t, "reset-password", "--email", "t@x.com")
	assert.ErrorIs(t, err, errEmptyPassword)
}
