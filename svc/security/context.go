package security

import (
	"context"
	"log/slog"

	"github.com/plantops/trustkit/pkg/audit"

	"github.com/google/uuid"
)

// Actor is the authenticated principal and its request envelope. Transport
// middleware stores one in the context; everything below reads it from
// there.
type Actor struct {
	UserID    uuid.UUID
	OrgID     uuid.UUID
	IP        string
	UserAgent string
}

// contextKey prevents collisions with other packages' context values.
type contextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext retrieves the actor stored by the middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}

// AuditExtractors wires the actor context into the audit logger so every
// recorded entry carries org, actor, IP, and user agent without call sites
// repeating them.
func AuditExtractors() []audit.Option {
	return []audit.Option{
		audit.WithOrgIDExtractor(func(ctx context.Context) (uuid.UUID, bool) {
			actor, ok := ActorFromContext(ctx)
			return actor.OrgID, ok && actor.OrgID != uuid.Nil
		}),
		audit.WithActorIDExtractor(func(ctx context.Context) (uuid.UUID, bool) {
			actor, ok := ActorFromContext(ctx)
			return actor.UserID, ok && actor.UserID != uuid.Nil
		}),
		audit.WithIPExtractor(func(ctx context.Context) (string, bool) {
			actor, ok := ActorFromContext(ctx)
			return actor.IP, ok && actor.IP != ""
		}),
		audit.WithUserAgentExtractor(func(ctx context.Context) (string, bool) {
			actor, ok := ActorFromContext(ctx)
			return actor.UserAgent, ok && actor.UserAgent != ""
		}),
	}
}

// LoggerExtractor enriches log records with the acting user and org.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		actor, ok := ActorFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("actor",
			slog.String("user_id", actor.UserID.String()),
			slog.String("org_id", actor.OrgID.String()),
		), true
	}
}
