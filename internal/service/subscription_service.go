package service

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/util"
	"edu_progress_backend/pkg/logger"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TierProvider 计费系统提供的订阅等级
type TierProvider interface {
	Tier(ctx context.Context, userID uint) (model.SubscriptionTier, error)
}

// SubscriptionService 读取订阅等级，Redis 可选缓存
type SubscriptionService struct {
	SubRepo *repository.SubscriptionRepository
	Redis   *redis.Client
	TTL     time.Duration
	Clock   util.Clock

	group singleflight.Group
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository, rdb *redis.Client, ttl time.Duration) *SubscriptionService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SubscriptionService{SubRepo: subRepo, Redis: rdb, TTL: ttl, Clock: util.SystemClock{}}
}

func tierCacheKey(userID uint) string {
	return fmt.Sprintf("progress:tier:%d", userID)
}

func (s *SubscriptionService) Tier(ctx context.Context, userID uint) (model.SubscriptionTier, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, tierCacheKey(userID)).Result()
		if err == nil {
			return model.SubscriptionTier(cached), nil
		}
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Tier cache read failed", zap.Uint("userID", userID), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(strconv.FormatUint(uint64(userID), 10), func() (interface{}, error) {
		tier, err := s.loadTier(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s.Redis != nil {
			if err := s.Redis.Set(ctx, tierCacheKey(userID), string(tier), s.TTL).Err(); err != nil {
				logger.Log.Warn("Tier cache write failed", zap.Uint("userID", userID), zap.Error(err))
			}
		}
		return tier, nil
	})
	if err != nil {
		return "", err
	}
	return v.(model.SubscriptionTier), nil
}

// loadTier 无订阅或已过期视为 FREE
func (s *SubscriptionService) loadTier(ctx context.Context, userID uint) (model.SubscriptionTier, error) {
	sub, err := s.SubRepo.FindByUserID(ctx, userID)
	if errors.Is(err, util.ErrNotFound) {
		return model.TierFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("load subscription: %w", err)
	}
	if sub.ExpiresAt != nil && !sub.ExpiresAt.After(s.Clock.Now()) {
		return model.TierFree, nil
	}
	switch sub.Tier {
	case model.TierPro, model.TierEnterprise:
		return sub.Tier, nil
	default:
		return model.TierFree, nil
	}
}

// UpdateTier 计费系统回调：写入订阅并清除缓存，下一次请求即按新等级限额
func (s *SubscriptionService) UpdateTier(ctx context.Context, userID uint, tier model.SubscriptionTier, expiresAt *time.Time) (*model.Subscription, error) {
	switch tier {
	case model.TierFree, model.TierPro, model.TierEnterprise:
	default:
		return nil, util.NewValidationError("tier", fmt.Sprintf("unknown tier %q", tier))
	}

	sub := &model.Subscription{UserID: userID, Tier: tier, ExpiresAt: expiresAt}
	if err := s.SubRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	s.Invalidate(ctx, userID)

	logger.Log.Info("Subscription tier updated",
		zap.Uint("userID", userID),
		zap.String("tier", string(tier)))
	return sub, nil
}

// Invalidate 订阅变更后清除缓存
func (s *SubscriptionService) Invalidate(ctx context.Context, userID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(ctx, tierCacheKey(userID))
}
