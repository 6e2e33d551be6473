// Package service holds the application logic between the HTTP layer
// and the repository. Every operation runs on behalf of an
// authenticated actor carried in the context; the actor's tenant is
// the only tenant the operation can touch.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tillpoint/backend/internal/audit"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/pricing"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	catalog pricing.Resolver
	audit   audit.Sink
	log     *zap.Logger
}

func New(repo store.Repository, cat pricing.Resolver, sink audit.Sink, log *zap.Logger) *Service {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, catalog: cat, audit: sink, log: log}
}

// actor returns the authenticated caller or fails the operation. The
// HTTP layer always installs one; a missing actor means the call
// skipped authentication.
func (s *Service) actor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.TenantID == "" {
		return domain.Actor{}, fmt.Errorf("no authenticated actor: %w", store.ErrInvalidArgument)
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	s.audit.Emit(domain.AuditLog{
		ID:         xid.New("audit"),
		TenantID:   actor.TenantID,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, actor.TenantID, from, to, limit)
}
