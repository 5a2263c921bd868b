package repository

import (
	"context"
	"edu_progress_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.QuizAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attempted_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}
