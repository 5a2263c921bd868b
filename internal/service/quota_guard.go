package service

import (
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/util"
	"time"
)

// QuotaGuard 每日测验次数限制，按订阅等级区分，按本地自然日重置
type QuotaGuard struct{}

func (QuotaGuard) Limit(p Policy, tier model.SubscriptionTier) int {
	if tier.IsPaid() {
		return p.PaidDailyQuizzes
	}
	return p.FreeDailyQuizzes
}

// stale lastQuizDate 早于今天（含从未答题）
func (QuotaGuard) stale(p Policy, user *model.User, now time.Time) bool {
	if user.LastQuizDate == nil {
		return true
	}
	today := util.StartOfDay(now.In(p.Location))
	return util.StartOfDay(user.LastQuizDate.In(p.Location)).Before(today)
}

// Used 今日已用次数，不修改用户
func (g QuotaGuard) Used(p Policy, user *model.User, now time.Time) int {
	if g.stale(p, user, now) {
		return 0
	}
	return user.DailyQuizCount
}

func (g QuotaGuard) Remaining(p Policy, user *model.User, tier model.SubscriptionTier, now time.Time) int {
	left := g.Limit(p, tier) - g.Used(p, user, now)
	if left < 0 {
		return 0
	}
	return left
}

// Check 判分前调用，超限返回 QuotaExceededError 且不产生任何修改
func (g QuotaGuard) Check(p Policy, user *model.User, tier model.SubscriptionTier, now time.Time) error {
	limit := g.Limit(p, tier)
	if g.Used(p, user, now) >= limit {
		return &util.QuotaExceededError{
			Limit:      limit,
			RetryAfter: util.StartOfNextDay(now.In(p.Location)),
		}
	}
	return nil
}

// Record 判分后更新计数：先惰性重置，通过时必计次，失败时按配置决定
func (g QuotaGuard) Record(p Policy, user *model.User, passed bool, now time.Time) {
	if g.stale(p, user, now) {
		user.DailyQuizCount = 0
	}
	if !passed && !p.ConsumeQuotaOnFailedAttempt {
		return
	}
	today := util.StartOfDay(now.In(p.Location))
	user.DailyQuizCount++
	user.LastQuizDate = &today
	if passed {
		completedAt := now
		user.LastQuizCompletion = &completedAt
	}
}
