package repository

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Level == 0 {
		user.Level = 1
	}
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ledgerColumns 账本写回时的列，version 由调用方以表达式递增
func ledgerColumns(u *model.User) map[string]interface{} {
	return map[string]interface{}{
		"xp":                   u.XP,
		"gems":                 u.Gems,
		"level":                u.Level,
		"completed_lessons":    u.CompletedLessons,
		"completed_chapters":   u.CompletedChapters,
		"completed_courses":    u.CompletedCourses,
		"passed_quizzes":       u.PassedQuizzes,
		"daily_quiz_count":     u.DailyQuizCount,
		"last_quiz_date":       u.LastQuizDate,
		"last_quiz_completion": u.LastQuizCompletion,
		"version":              gorm.Expr("version + 1"),
	}
}
