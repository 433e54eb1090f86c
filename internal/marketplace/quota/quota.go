// internal/marketplace/quota/quota.go

// Package quota enforces the monthly application limit per role tier,
// backed by a redis counter keyed on user and calendar month.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"talent-marketplace/internal/common/config"
	"talent-marketplace/internal/common/logger"
	"talent-marketplace/internal/models"

	"github.com/redis/go-redis/v9"
)

// Status is the result of a quota check.
type Status struct {
	CanApply bool `json:"canApply"`
	Current  int  `json:"current"`
	Limit    int  `json:"limit"`
}

type Checker struct {
	redis  *redis.Client
	config config.QuotaConfig
	logger logger.Logger

	// now is swappable for month-boundary tests.
	now func() time.Time
}

func NewChecker(rdb *redis.Client, cfg config.QuotaConfig, log logger.Logger) *Checker {
	return &Checker{
		redis:  rdb,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "quota"}),
		now:    time.Now,
	}
}

func (c *Checker) key(userID string, t time.Time) string {
	return fmt.Sprintf("quota:apply:%s:%s", userID, t.UTC().Format("2006-01"))
}

// Check returns the current quota status for a user. Redis unavailability
// fails open with a warning: the quota is a product limit, not a security
// boundary, and must not block applications on cache outage.
func (c *Checker) Check(ctx context.Context, userID string, role models.Role) (Status, error) {
	limit := c.config.LimitFor(string(role))
	if !c.config.Enabled {
		return Status{CanApply: true, Current: 0, Limit: limit}, nil
	}

	val, err := c.redis.Get(ctx, c.key(userID, c.now())).Result()
	if err == redis.Nil {
		return Status{CanApply: limit > 0, Current: 0, Limit: limit}, nil
	}
	if err != nil {
		c.logger.Warn("quota lookup failed, allowing application", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
		return Status{CanApply: true, Current: 0, Limit: limit}, nil
	}

	current, err := strconv.Atoi(val)
	if err != nil {
		c.logger.Warn("quota counter is not numeric, resetting view", map[string]interface{}{
			"userId": userID,
			"value":  val,
		})
		current = 0
	}

	return Status{CanApply: current < limit, Current: current, Limit: limit}, nil
}

// Record increments the user's counter for the current month. The key
// expires shortly after the month rolls over so stale counters reap
// themselves. Failures are logged only: the application was already
// inserted by the time Record runs.
func (c *Checker) Record(ctx context.Context, userID string) {
	if !c.config.Enabled {
		return
	}

	now := c.now()
	key := c.key(userID, now)

	if err := c.redis.Incr(ctx, key).Err(); err != nil {
		c.logger.Warn("quota increment failed", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
		return
	}

	monthEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	c.redis.ExpireAt(ctx, key, monthEnd.Add(24*time.Hour))
}
