package repository_test

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

func TestProgressCreateDuplicate(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	user := testutil.SeedUser(t, db, "alice")
	course := testutil.TwoByTwoCourse()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, model.NewCourseProgress(user.ID, course)))
	err := repo.Create(ctx, model.NewCourseProgress(user.ID, course))
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	_, err = repo.FindByUserAndCourse(ctx, user.ID, "other")
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	p, err := repo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.ProgressTree().Chapter("ch-1"))
}

func TestSaveCompletionCommitsAll(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	users := repository.NewUserRepository(db)
	user := testutil.SeedUser(t, db, "alice")
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	u, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	u.XP = 100
	u.Gems = 5

	err = repo.SaveCompletion(ctx, &repository.CompletionWrite{
		User:        u,
		Progress:    model.NewCourseProgress(u.ID, testutil.TwoByTwoCourse()),
		NewProgress: true,
		Badges:      []model.UserBadge{{UserID: u.ID, BadgeID: "first_lesson", AwardedAt: now}},
		Attempt: &model.QuizAttempt{
			UserID: u.ID, CourseID: "course-1", Kind: model.AttemptLessonQuiz,
			Slug: "lesson-1-1", Score: 80, Passed: true, AttemptedAt: now,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, u.Version)

	stored := testutil.ReloadUser(t, db, u.ID)
	assert.Equal(t, 100, stored.XP)
	assert.Equal(t, 1, stored.Version)

	badges, err := repository.NewBadgeRepository(db).BadgeSet(ctx, u.ID)
	require.NoError(t, err)
	assert.Contains(t, badges, "first_lesson")

	attempts, err := repository.NewAttemptRepository(db).ListByUser(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 80.0, attempts[0].Score)
}

func TestSaveCompletionStaleVersion(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	users := repository.NewUserRepository(db)
	user := testutil.SeedUser(t, db, "alice")
	course := testutil.TwoByTwoCourse()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewCourseProgress(user.ID, course)))

	// 两个请求读到同一版本
	first, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	second, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	p1, err := repo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	p2, err := repo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)

	first.XP = 100
	p1.CompletionPercentage = 25
	require.NoError(t, repo.SaveCompletion(ctx, &repository.CompletionWrite{User: first, Progress: p1}))

	second.XP = 350
	p2.CompletionPercentage = 50
	err = repo.SaveCompletion(ctx, &repository.CompletionWrite{
		User:     second,
		Progress: p2,
		Attempt:  &model.QuizAttempt{UserID: user.ID, Kind: model.AttemptLessonQuiz, Slug: "x", AttemptedAt: time.Now()},
	})
	require.ErrorIs(t, err, util.ErrConcurrentModification)
	assert.Equal(t, 0, second.Version)

	stored := testutil.ReloadUser(t, db, user.ID)
	assert.Equal(t, 100, stored.XP)
	p, err := repo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, p.CompletionPercentage)

	attempts, err := repository.NewAttemptRepository(db).ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestSaveCompletionStaleProgressRollsBackLedger(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	users := repository.NewUserRepository(db)
	user := testutil.SeedUser(t, db, "alice")
	course := testutil.TwoByTwoCourse()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewCourseProgress(user.ID, course)))

	p, err := repo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.CourseProgress{}).Where("id = ?", p.ID).
		Update("version", p.Version+1).Error)

	u, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	u.XP = 500
	err = repo.SaveCompletion(ctx, &repository.CompletionWrite{User: u, Progress: p})
	require.ErrorIs(t, err, util.ErrConcurrentModification)

	stored := testutil.ReloadUser(t, db, user.ID)
	assert.Equal(t, 0, stored.XP)
	assert.Equal(t, 0, stored.Version)
}

func TestAttemptListLimit(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewAttemptRepository(db)
	user := testutil.SeedUser(t, db, "alice")
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		require.NoError(t, db.Create(&model.QuizAttempt{
			UserID: user.ID, Kind: model.AttemptFinalExam, Slug: "exam",
			Score: float64(i), AttemptedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	list, err := repo.ListByUser(context.Background(), user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 20)
	assert.Equal(t, 24.0, list[0].Score, "newest first")

	list, err = repo.ListByUser(context.Background(), user.ID, 5)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}
