package service

import (
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/util"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotaPolicy() Policy {
	p := DefaultPolicy()
	p.Location = time.UTC
	return p
}

func TestQuotaLimitByTier(t *testing.T) {
	var g QuotaGuard
	p := quotaPolicy()
	assert.Equal(t, 1, g.Limit(p, model.TierFree))
	assert.Equal(t, 5, g.Limit(p, model.TierPro))
	assert.Equal(t, 5, g.Limit(p, model.TierEnterprise))
}

func TestQuotaResetsOnNewDay(t *testing.T) {
	var g QuotaGuard
	p := quotaPolicy()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	user := &model.User{DailyQuizCount: 1, LastQuizDate: &yesterday}

	require.NoError(t, g.Check(p, user, model.TierFree, now))
	assert.Equal(t, 1, user.DailyQuizCount, "check does not mutate")

	g.Record(p, user, true, now)
	assert.Equal(t, 1, user.DailyQuizCount)
	assert.Equal(t, util.StartOfDay(now), *user.LastQuizDate)
	assert.Equal(t, now, *user.LastQuizCompletion)

	err := g.Check(p, user, model.TierFree, now.Add(time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrQuotaExceeded))

	var qerr *util.QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 1, qerr.Limit)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), qerr.RetryAfter)
}

func TestQuotaFailedAttemptPolicy(t *testing.T) {
	var g QuotaGuard
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	p := quotaPolicy()
	user := &model.User{}
	g.Record(p, user, false, now)
	assert.Equal(t, 0, user.DailyQuizCount)
	assert.Nil(t, user.LastQuizCompletion)
	assert.NoError(t, g.Check(p, user, model.TierFree, now))

	p.ConsumeQuotaOnFailedAttempt = true
	g.Record(p, user, false, now)
	assert.Equal(t, 1, user.DailyQuizCount)
	assert.Nil(t, user.LastQuizCompletion)
	assert.ErrorIs(t, g.Check(p, user, model.TierFree, now), util.ErrQuotaExceeded)
}

func TestQuotaUsesConfiguredTimezone(t *testing.T) {
	var g QuotaGuard
	p := quotaPolicy()
	p.Location = time.FixedZone("UTC+8", 8*3600)

	// 同一 UTC 日期，但在 UTC+8 已经跨天
	last := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	user := &model.User{DailyQuizCount: 1, LastQuizDate: &last}

	assert.Equal(t, 0, g.Used(p, user, now))
	assert.Equal(t, 1, g.Remaining(p, user, model.TierFree, now))
}

func TestQuotaPaidTier(t *testing.T) {
	var g QuotaGuard
	p := quotaPolicy()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	user := &model.User{}

	for i := 0; i < 5; i++ {
		require.NoError(t, g.Check(p, user, model.TierPro, now))
		g.Record(p, user, true, now)
	}
	assert.ErrorIs(t, g.Check(p, user, model.TierPro, now), util.ErrQuotaExceeded)
	assert.Equal(t, 0, g.Remaining(p, user, model.TierPro, now))
}
