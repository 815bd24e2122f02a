package deductions

import (
	"context"
	"strconv"
	"time"

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/marketsync-backend/pkg/redis"
)

const defaultGuardTTL = 10 * time.Minute

// IdempotencyGuard marks notifications in flight so concurrent redeliveries
// of the same order short-circuit before touching the database. The mark is
// dropped when the run ends; the TTL only bounds a crashed holder. The audit
// table stays the authoritative dedupe.
type IdempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
	now   func() time.Time
}

// NewIdempotencyGuard returns a guard; a nil store disables it.
func NewIdempotencyGuard(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &IdempotencyGuard{store: store, ttl: ttl, logg: logg, now: time.Now}
}

// Acquire marks (scope, id) and reports false when another delivery holds it.
func (g *IdempotencyGuard) Acquire(ctx context.Context, scope, id string) (bool, error) {
	if g == nil || g.store == nil {
		return true, nil
	}
	key := g.store.IdempotencyKey(scope, id)
	ok, err := g.store.SetNX(ctx, key, strconv.FormatInt(g.now().UnixMilli(), 10), g.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification")
	}
	return ok, nil
}

// Release drops the mark once a run ends.
func (g *IdempotencyGuard) Release(ctx context.Context, scope, id string) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.Del(ctx, g.store.IdempotencyKey(scope, id)); err != nil {
		g.logg.Error(g.logg.WithField(ctx, "scope", scope), "release notification mark", err)
	}
}
