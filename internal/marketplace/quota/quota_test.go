// internal/marketplace/quota/quota_test.go
package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"talent-marketplace/internal/common/config"
	"talent-marketplace/internal/common/logger/loggertest"
	"talent-marketplace/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func testConfig() config.QuotaConfig {
	return config.QuotaConfig{
		Enabled: true,
		TierLimits: map[string]int{
			"talent":         3,
			"premium_talent": 50,
			"default":        10,
		},
	}
}

func newTestChecker(t *testing.T) (*Checker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewChecker(client, testConfig(), loggertest.New(t)), mr
}

// ==========================
// Check Tests
// ==========================

func TestCheck_NoUsageAllows(t *testing.T) {
	checker, _ := newTestChecker(t)

	status, err := checker.Check(context.Background(), "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
	assert.Equal(t, 0, status.Current)
	assert.Equal(t, 3, status.Limit)
}

func TestCheck_UnderLimitAllows(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()

	checker.Record(ctx, "user-1")
	checker.Record(ctx, "user-1")

	status, err := checker.Check(ctx, "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
	assert.Equal(t, 2, status.Current)
}

func TestCheck_ExhaustedRejects(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		checker.Record(ctx, "user-1")
	}

	status, err := checker.Check(ctx, "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.False(t, status.CanApply)
	assert.Equal(t, 3, status.Current)
	assert.Equal(t, 3, status.Limit)
}

func TestCheck_PremiumTierHasHigherLimit(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		checker.Record(ctx, "user-1")
	}

	status, err := checker.Check(ctx, "user-1", models.RolePremiumTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
	assert.Equal(t, 50, status.Limit)
}

func TestCheck_UnknownRoleUsesDefaultTier(t *testing.T) {
	checker, _ := newTestChecker(t)

	status, err := checker.Check(context.Background(), "user-1", models.Role("academy"))

	assert.NoError(t, err)
	assert.Equal(t, 10, status.Limit)
}

func TestCheck_DisabledAlwaysAllows(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := testConfig()
	cfg.Enabled = false
	checker := NewChecker(client, cfg, loggertest.New(t))

	status, err := checker.Check(context.Background(), "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
}

func TestCheck_NonNumericCounterResetsView(t *testing.T) {
	client, mock := redismock.NewClientMock()
	checker := NewChecker(client, testConfig(), loggertest.New(t))
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return now }

	mock.ExpectGet(checker.key("user-1", now)).SetVal("garbage")

	status, err := checker.Check(context.Background(), "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
	assert.Equal(t, 0, status.Current)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck_LookupErrorFailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	checker := NewChecker(client, testConfig(), loggertest.New(t))
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return now }

	mock.ExpectGet(checker.key("user-1", now)).SetErr(errors.New("redis gone"))

	status, err := checker.Check(context.Background(), "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
}

func TestCheck_RedisDownFailsOpen(t *testing.T) {
	checker, mr := newTestChecker(t)
	mr.Close()

	status, err := checker.Check(context.Background(), "user-1", models.RoleTalent)

	assert.NoError(t, err)
	assert.True(t, status.CanApply)
}

// ==========================
// Record / Rollover Tests
// ==========================

func TestRecord_ScopedToCalendarMonth(t *testing.T) {
	checker, mr := newTestChecker(t)
	ctx := context.Background()

	march := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return march }
	mr.SetTime(march)
	for i := 0; i < 3; i++ {
		checker.Record(ctx, "user-1")
	}

	status, err := checker.Check(ctx, "user-1", models.RoleTalent)
	assert.NoError(t, err)
	assert.False(t, status.CanApply)

	// The month rolls over and the counter starts fresh.
	checker.now = func() time.Time { return march.Add(2 * time.Hour) }
	status, err = checker.Check(ctx, "user-1", models.RoleTalent)
	assert.NoError(t, err)
	assert.True(t, status.CanApply)
	assert.Equal(t, 0, status.Current)
}

func TestRecord_SetsExpiry(t *testing.T) {
	checker, mr := newTestChecker(t)

	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return now }
	mr.SetTime(now)
	checker.Record(context.Background(), "user-1")

	key := checker.key("user-1", now)
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestRecord_RedisDownDoesNotPanic(t *testing.T) {
	checker, mr := newTestChecker(t)
	mr.Close()

	checker.Record(context.Background(), "user-1")
}
