package repository

import (
	"context"
	"edu_progress_backend/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) FindByUserID(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error
	if err != nil {
		return nil, err
	}
	return badges, nil
}

// BadgeSet 返回用户已持有的徽章集合
func (r *BadgeRepository) BadgeSet(ctx context.Context, userID uint) (map[string]struct{}, error) {
	badges, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(badges))
	for _, b := range badges {
		set[b.BadgeID] = struct{}{}
	}
	return set, nil
}
