package repository

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndCourse(ctx context.Context, userID uint, courseID string) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.CourseProgress, error) {
	var list []model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// Create 报名，唯一索引冲突视为重复报名
func (r *ProgressRepository) Create(ctx context.Context, p *model.CourseProgress) error {
	err := r.DB.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrAlreadyEnrolled
	}
	return err
}

// CompletionWrite 一次完成请求需要落库的全部实体
type CompletionWrite struct {
	User        *model.User
	Progress    *model.CourseProgress
	NewProgress bool
	Badges      []model.UserBadge
	Attempt     *model.QuizAttempt
}

// SaveCompletion 在一个事务内写回账本、进度、徽章和答题记录。
// 用户行与进度行均带 version 条件，任何一行未命中即整体回滚。
func (r *ProgressRepository) SaveCompletion(ctx context.Context, w *CompletionWrite) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND version = ?", w.User.ID, w.User.Version).
			Updates(ledgerColumns(w.User))
		if res.Error != nil {
			return fmt.Errorf("update ledger: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return util.ErrConcurrentModification
		}

		if w.Progress != nil {
			if w.NewProgress {
				if err := tx.Create(w.Progress).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						return util.ErrConcurrentModification
					}
					return fmt.Errorf("create progress: %w", err)
				}
			} else {
				res = tx.Model(&model.CourseProgress{}).
					Where("id = ? AND version = ?", w.Progress.ID, w.Progress.Version).
					Updates(map[string]interface{}{
						"completed":             w.Progress.Completed,
						"completion_date":       w.Progress.CompletionDate,
						"current_chapter_index": w.Progress.CurrentChapterIndex,
						"current_lesson_index":  w.Progress.CurrentLessonIndex,
						"completion_percentage": w.Progress.CompletionPercentage,
						"tree":                  w.Progress.Tree,
						"version":               gorm.Expr("version + 1"),
					})
				if res.Error != nil {
					return fmt.Errorf("update progress: %w", res.Error)
				}
				if res.RowsAffected == 0 {
					return util.ErrConcurrentModification
				}
			}
		}

		if len(w.Badges) > 0 {
			if err := tx.Create(&w.Badges).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return util.ErrConcurrentModification
				}
				return fmt.Errorf("create badges: %w", err)
			}
		}

		if w.Attempt != nil {
			if err := tx.Create(w.Attempt).Error; err != nil {
				return fmt.Errorf("create attempt: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 提交成功后与库中版本对齐
	w.User.Version++
	if w.Progress != nil && !w.NewProgress {
		w.Progress.Version++
	}
	return nil
}
