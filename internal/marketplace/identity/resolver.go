// internal/marketplace/identity/resolver.go

// Package identity resolves the company scope behind a business actor.
// Lookups repeat on every dashboard refresh, so results sit in a short
// redis cache. A business user without a company resolves to "", which
// downstream treats as an empty dashboard scope, not an error.
package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talent-marketplace/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

type Resolver struct {
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

func NewResolver(db *sql.DB, rdb *redis.Client, log logger.Logger) *Resolver {
	return &Resolver{
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"component": "identity"}),
		ttl:    defaultCacheTTL,
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("identity:company:%s", userID)
}

// CompanyFor returns the id of the company the user owns, or "" when the
// user owns none. The cache is best-effort on both sides: a redis miss or
// outage falls through to postgres, a failed cache write is only logged.
func (r *Resolver) CompanyFor(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}

	key := cacheKey(userID)
	if cached, err := r.redis.Get(ctx, key).Result(); err == nil {
		return cached, nil
	} else if err != redis.Nil {
		r.logger.Warn("company cache lookup failed, falling through", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	}

	var companyID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE owner_id = $1`, userID,
	).Scan(&companyID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve company: %w", err)
	}

	if err := r.redis.Set(ctx, key, companyID, r.ttl).Err(); err != nil {
		r.logger.Warn("company cache write failed", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	}
	return companyID, nil
}

// Invalidate drops the cached scope, for use when company ownership
// changes.
func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	if err := r.redis.Del(ctx, cacheKey(userID)).Err(); err != nil {
		r.logger.Warn("company cache invalidation failed", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	}
}
