package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-school-portal/internal/model"
)

const (
	uniqueViolation = "23505"

	emailConstraint = "credentials_entity_email_key"
	phoneConstraint = "credentials_teachers_phone_key"
)

const credentialColumns = `id, entity, full_name, email, phone, school_name, role, password_hash, created_at, updated_at`

type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

func (r *CredentialRepository) Create(ctx context.Context, c model.Credential) (model.Credential, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO credentials (entity, full_name, email, phone, school_name, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		c.Entity, c.FullName, c.Email, c.Phone, c.SchoolName, c.Role, c.PasswordHash, c.CreatedAt, c.UpdatedAt).
		Scan(&c.ID)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return model.Credential{}, conflict
		}
		return model.Credential{}, storageErr("create credential", err)
	}
	return c, nil
}

func (r *CredentialRepository) FindByEmail(ctx context.Context, entity string, email string) (model.Credential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE entity = $1 AND lower(email) = lower($2)`,
		entity, strings.TrimSpace(email))

	c, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Credential{}, model.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, storageErr("find credential by email", err)
	}
	return c, nil
}

func (r *CredentialRepository) FindByID(ctx context.Context, entity string, id int64) (model.Credential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE entity = $1 AND id = $2`,
		entity, id)

	c, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Credential{}, model.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, storageErr("find credential by id", err)
	}
	return c, nil
}

func (r *CredentialRepository) ExistsByEmail(ctx context.Context, entity string, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM credentials WHERE entity = $1 AND lower(email) = lower($2))`,
		entity, strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, storageErr("check email exists", err)
	}
	return exists, nil
}

func (r *CredentialRepository) ExistsByPhone(ctx context.Context, entity string, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM credentials WHERE entity = $1 AND phone = $2)`,
		entity, strings.TrimSpace(phone)).Scan(&exists)
	if err != nil {
		return false, storageErr("check phone exists", err)
	}
	return exists, nil
}

func (r *CredentialRepository) UpdatePassword(ctx context.Context, entity string, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE credentials SET password_hash = $3, updated_at = $4 WHERE entity = $1 AND id = $2`,
		entity, id, passwordHash, time.Now().UTC())
	if err != nil {
		return storageErr("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCredentialNotFound
	}
	return nil
}

func (r *CredentialRepository) ListBySchool(ctx context.Context, entity string, schoolName string) ([]model.Credential, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+credentialColumns+` FROM credentials
		 WHERE entity = $1 AND school_name = $2
		 ORDER BY full_name, id`,
		entity, schoolName)
	if err != nil {
		return nil, storageErr("list credentials", err)
	}
	defer rows.Close()

	out := make([]model.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, storageErr("scan credential", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list credentials", err)
	}
	return out, nil
}

func scanCredential(row pgx.Row) (model.Credential, error) {
	var c model.Credential
	err := row.Scan(&c.ID, &c.Entity, &c.FullName, &c.Email, &c.Phone, &c.SchoolName,
		&c.Role, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// uniqueConflict maps a unique-index violation to the field that collided.
func uniqueConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case emailConstraint:
		return model.ErrEmailTaken
	case phoneConstraint:
		return model.ErrPhoneTaken
	default:
		return nil
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}
