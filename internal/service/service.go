package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/checkout"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/report"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/xid"
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
	repo     store.Repository
	checkout *checkout.Orchestrator
	reports  *report.Engine
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

func New(repo store.Repository, reports *report.Engine, logger *zap.Logger, location *time.Location) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reports == nil {
		reports = report.NewEngine(nil, 0, logger)
	}
	if location == nil {
		location = time.Local
	}

	return &Service{
		repo:     repo,
		checkout: checkout.NewOrchestrator(repo, logger.Named("checkout")),
		reports:  reports,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
}

// Permissions describes what the current user may do. Clients use it to
// hide actions instead of checking roles themselves.
type Permissions struct {
	UserID       string              `json:"user_id"`
	Email        string              `json:"email"`
	Role         domain.Role         `json:"role,omitempty"`
	Capabilities access.Capabilities `json:"capabilities"`
}

func (s *Service) MyPermissions(ctx context.Context) (Permissions, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return Permissions{}, fmt.Errorf("%w: authentication required", domain.ErrPermissionDenied)
	}
	return Permissions{
		UserID:       actor.UserID,
		Email:        actor.Email,
		Role:         actor.Role,
		Capabilities: access.For(actor.Role),
	}, nil
}

// requireStaff returns the actor when it holds any role. Users without a role
// are signed in but cannot use any feature.
func requireStaff(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, fmt.Errorf("%w: authentication required", domain.ErrPermissionDenied)
	}
	if actor.Role == "" {
		return domain.Actor{}, fmt.Errorf("%w: no role assigned", domain.ErrPermissionDenied)
	}
	return actor, nil
}

func requireCapability(ctx context.Context, need access.Predicate, what string) (domain.Actor, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if err := access.Require(actor.Role, need, what); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{UserID: "system", Role: "system"}
	}

	if err := s.repo.CreateActivityLog(ctx, domain.ActivityLog{
		ID:         xid.New("act"),
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to write activity log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

func (s *Service) startOfDay(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}

// ParseDay parses YYYY-MM-DD in the store's timezone. Empty means today.
func (s *Service) ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.startOfDay(s.now()), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	return day, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
