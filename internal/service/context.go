package service

import (
	"context"
	"strings"

	"warungpos/backend/internal/domain"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// RoleFromContext returns the caller's role. A missing actor is a guest.
func RoleFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.RoleGuest
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleCashier:
		return actor.Role
	default:
		return domain.RoleGuest
	}
}

// Authorize rejects guests. The first non-blank reason replaces the default
// message.
func Authorize(ctx context.Context, reason ...string) error {
	if RoleFromContext(ctx) != domain.RoleGuest {
		return nil
	}
	msg := domain.DefaultAuthorizationReason
	for _, r := range reason {
		if strings.TrimSpace(r) != "" {
			msg = r
			break
		}
	}
	return &domain.AuthorizationError{Reason: msg}
}
