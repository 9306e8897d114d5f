package service

import (
	"context"
	"log/slog"

	"go-school-portal/internal/event"
	"go-school-portal/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Recent(ctx context.Context, entity string, schoolName string, limit int) ([]model.AuditEntry, error)
}

// AuditService persists credential events published on the bus.
type AuditService struct {
	store AuditStore
	bus   event.Bus
}

func NewAuditService(store AuditStore, bus event.Bus) *AuditService {
	return &AuditService{store: store, bus: bus}
}

// Start subscribes to the bus and persists events in the background until
// ctx is cancelled. Events already queued at cancellation are still persisted.
// The returned channel closes once the consumer has exited.
func (s *AuditService) Start(ctx context.Context) <-chan struct{} {
	ch, unsubscribe := s.bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				s.drain(ctx, ch)
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				s.record(ctx, e)
			}
		}
	}()

	return done
}

func (s *AuditService) drain(ctx context.Context, ch <-chan event.Event) {
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			s.record(ctx, e)
		default:
			return
		}
	}
}

func (s *AuditService) record(ctx context.Context, e event.Event) {
	entry := model.AuditEntry{
		EventID:    e.ID,
		Action:     string(e.Type),
		Entity:     e.Entity,
		UserID:     e.UserID,
		Email:      e.Email,
		SchoolName: e.SchoolName,
		OccurredAt: e.OccurredAt,
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("audit entry not persisted", "event_id", e.ID, "action", e.Type, "error", err)
	}
}

// Recent lists the newest events of the caller's registry and school.
func (s *AuditService) Recent(ctx context.Context, entity string, claims *model.SessionClaims, limit int) ([]model.AuditEntry, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}

	return s.store.Recent(ctx, entity, claims.SchoolName, limit)
}
