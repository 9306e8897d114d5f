package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-school-portal/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Log is idempotent per event ID.
func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_audit (event_id, action, entity, user_id, email, school_name, occurred_at)
		 VALUES ($1, $2, $3, NULLIF($4, 0), $5, $6, $7)
		 ON CONFLICT (event_id) DO NOTHING`,
		entry.EventID, entry.Action, entry.Entity, entry.UserID, entry.Email, entry.SchoolName, entry.OccurredAt)
	if err != nil {
		return storageErr("log audit entry", err)
	}
	return nil
}

// Recent returns the newest entries for one registry and school.
func (r *AuditRepository) Recent(ctx context.Context, entity string, schoolName string, limit int) ([]model.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id::text, action, entity, COALESCE(user_id, 0), email, school_name, occurred_at
		 FROM auth_audit
		 WHERE entity = $1 AND school_name = $2
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $3`,
		entity, schoolName, limit)
	if err != nil {
		return nil, storageErr("query audit entries", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.Action, &e.Entity, &e.UserID, &e.Email, &e.SchoolName, &e.OccurredAt); err != nil {
			return nil, storageErr("scan audit entry", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate audit entries", err)
	}
	return entries, nil
}
