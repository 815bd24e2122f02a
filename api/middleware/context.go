package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/marketsync-backend/pkg/logger"
)

type contextKey string

const (
	ctxActor contextKey = "actor"

	actorHeader  = "X-Operator"
	defaultActor = "operator"
)

// ActorFromContext returns the operator recorded on stock history and
// pending-sale resolutions.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultActor
	}
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return defaultActor
}

// WithActor injects the operator identifier into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// Actor reads the X-Operator header so manual changes stay attributable.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(actorHeader))
			if actor == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithField(ctx, "actor", actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
