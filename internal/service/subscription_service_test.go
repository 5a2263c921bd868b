package service

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/testutil"
	"edu_progress_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionTier(t *testing.T) {
	db := testutil.DB(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	svc := NewSubscriptionService(repository.NewSubscriptionRepository(db), nil, 0)
	svc.Clock = testutil.NewClock(now)
	assert.Equal(t, 5*time.Minute, svc.TTL)

	free := testutil.SeedUser(t, db, "free")
	pro := testutil.SeedUser(t, db, "pro")
	lapsed := testutil.SeedUser(t, db, "lapsed")
	forever := testutil.SeedUser(t, db, "forever")

	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Minute)
	testutil.SeedSubscription(t, db, pro.ID, model.TierPro, &future)
	testutil.SeedSubscription(t, db, lapsed.ID, model.TierEnterprise, &past)
	testutil.SeedSubscription(t, db, forever.ID, model.TierEnterprise, nil)

	cases := []struct {
		name string
		user uint
		want model.SubscriptionTier
	}{
		{"no subscription", free.ID, model.TierFree},
		{"active pro", pro.ID, model.TierPro},
		{"expired", lapsed.ID, model.TierFree},
		{"no expiry", forever.ID, model.TierEnterprise},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Tier(context.Background(), tc.user)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSubscriptionUpsertChangesTier(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewSubscriptionRepository(db)
	svc := NewSubscriptionService(repo, nil, time.Minute)
	user := testutil.SeedUser(t, db, "bob")
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Subscription{UserID: user.ID, Tier: model.TierPro}))
	tier, err := svc.Tier(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, tier)

	require.NoError(t, repo.Upsert(ctx, &model.Subscription{UserID: user.ID, Tier: "GOLD"}))
	svc.Invalidate(ctx, user.ID)
	tier, err = svc.Tier(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, tier, "unknown tiers fall back to FREE")
}

func TestUpdateTierTakesEffectImmediately(t *testing.T) {
	db := testutil.DB(t)
	svc := NewSubscriptionService(repository.NewSubscriptionRepository(db), nil, time.Minute)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.Clock = testutil.NewClock(now)
	user := testutil.SeedUser(t, db, "carol")
	ctx := context.Background()

	past := now.Add(-time.Hour)
	_, err := svc.UpdateTier(ctx, user.ID, model.TierPro, &past)
	require.NoError(t, err)
	tier, err := svc.Tier(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, tier, "expired")

	// 续费后不带到期时间，旧的到期时间被清除
	_, err = svc.UpdateTier(ctx, user.ID, model.TierPro, nil)
	require.NoError(t, err)
	tier, err = svc.Tier(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, tier)

	var rows int64
	require.NoError(t, db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, err = svc.UpdateTier(ctx, user.ID, "GOLD", nil)
	assert.ErrorIs(t, err, util.ErrValidation)
}
