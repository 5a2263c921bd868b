package service

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/util"
	"edu_progress_backend/pkg/logger"
	"edu_progress_backend/pkg/monitoring"
	"edu_progress_backend/pkg/tracing"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CompletionResult 一次完成请求的结果
type CompletionResult struct {
	XPGained             int      `json:"xpGained"`
	GemsGained           int      `json:"gemsGained"`
	LevelUp              bool     `json:"levelUp"`
	NewXP                int      `json:"newXp"`
	NewGems              int      `json:"newGems"`
	NewLevel             int      `json:"newLevel"`
	CompletionPercentage int      `json:"completionPercentage"`
	IsCompleted          bool     `json:"isCompleted"`
	NextItemSlug         *string  `json:"nextItemSlug"`
	NewlyAwardedBadges   []string `json:"newlyAwardedBadges"`

	Score            *float64 `json:"score,omitempty"`
	Passed           *bool    `json:"passed,omitempty"`
	LessonCompleted  bool     `json:"lessonCompleted"`
	ChapterCompleted bool     `json:"chapterCompleted"`
}

// LessonQuizSubmission 课时测验提交：answers 优先，否则使用客户端给出的 score。
// passed 仅作参考，服务端按及格线重新判定。
type LessonQuizSubmission struct {
	Score   *float64          `json:"score"`
	Passed  *bool             `json:"passed"`
	Answers map[string]Answer `json:"answers"`
}

type ChapterQuizSubmission struct {
	Answers  map[string]Answer `json:"answers"`
	TimeLeft int               `json:"timeLeft"`
}

type ExamSubmission struct {
	Answers map[string]Answer `json:"answers"`
}

// Ledger 用户奖励账本概览
type Ledger struct {
	UserID             uint                   `json:"userId"`
	XP                 int                    `json:"xp"`
	Gems               int                    `json:"gems"`
	Level              int                    `json:"level"`
	LevelPolicy        string                 `json:"levelPolicy"`
	CompletedLessons   int                    `json:"completedLessons"`
	CompletedChapters  int                    `json:"completedChapters"`
	CompletedCourses   int                    `json:"completedCourses"`
	PassedQuizzes      int                    `json:"passedQuizzes"`
	Tier               model.SubscriptionTier `json:"tier"`
	DailyQuizLimit     int                    `json:"dailyQuizLimit"`
	DailyQuizRemaining int                    `json:"dailyQuizRemaining"`
	Badges             []model.UserBadge      `json:"badges"`
}

type CompletionService struct {
	UserRepo     *repository.UserRepository
	ProgressRepo *repository.ProgressRepository
	BadgeRepo    *repository.BadgeRepository
	AttemptRepo  *repository.AttemptRepository
	Catalog      *CatalogService
	Tiers        TierProvider
	Policies     *PolicyStore
	Quota        QuotaGuard
	Clock        util.Clock
}

func NewCompletionService(
	userRepo *repository.UserRepository,
	progressRepo *repository.ProgressRepository,
	badgeRepo *repository.BadgeRepository,
	attemptRepo *repository.AttemptRepository,
	catalog *CatalogService,
	tiers TierProvider,
	policies *PolicyStore,
	clock util.Clock,
) *CompletionService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if policies == nil {
		policies = NewPolicyStore(DefaultPolicy())
	}
	return &CompletionService{
		UserRepo:     userRepo,
		ProgressRepo: progressRepo,
		BadgeRepo:    badgeRepo,
		AttemptRepo:  attemptRepo,
		Catalog:      catalog,
		Tiers:        tiers,
		Policies:     policies,
		Clock:        clock,
	}
}

// UpdatePolicy 配置热更新入口
func (s *CompletionService) UpdatePolicy(p Policy) {
	s.Policies.Set(p)
	logger.Log.Info("Progress policy updated",
		zap.String("levelPolicy", p.Level.Name()),
		zap.Int("freeDailyQuizzes", p.FreeDailyQuizzes),
		zap.Int("paidDailyQuizzes", p.PaidDailyQuizzes),
		zap.Bool("consumeQuotaOnFailedAttempt", p.ConsumeQuotaOnFailedAttempt))
}

// completion 单次请求内的聚合：先在内存中修改，最后一次性写回
type completion struct {
	policy      Policy
	now         time.Time
	course      *model.Course
	user        *model.User
	oldLevel    int // 请求前 XP 按当前策略算出的等级，与库中等级（最低为 1）无关
	progress    *model.CourseProgress
	newProgress bool
	tree        *model.ProgressTree
	badges      *BadgeLedger
	reward      Reward
	event       BadgeEvent
	attempt     *model.QuizAttempt
	firsts      []string
	result      CompletionResult
}

// begin 加载用户、进度和徽章。autoEnroll 为 false 时未报名返回 ErrNotEnrolled。
func (s *CompletionService) begin(ctx context.Context, userID uint, course *model.Course, autoEnroll bool) (*completion, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	policy := s.Policies.Get()
	cp := &completion{
		policy:   policy,
		now:      s.Clock.Now(),
		course:   course,
		user:     user,
		oldLevel: policy.Level.Level(user.XP),
	}

	progress, err := s.ProgressRepo.FindByUserAndCourse(ctx, userID, course.ID)
	switch {
	case errors.Is(err, util.ErrNotEnrolled) && autoEnroll:
		progress = model.NewCourseProgress(userID, course)
		cp.newProgress = true
	case err != nil:
		return nil, err
	}
	cp.progress = progress
	cp.tree = progress.ProgressTree()
	cp.tree.Reconcile(course)

	owned, err := s.BadgeRepo.BadgeSet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	cp.badges = NewBadgeLedger(owned)
	return cp, nil
}

func (cp *completion) grant(r Reward) {
	cp.reward = cp.reward.Add(r)
	cp.user.XP += r.XP
	cp.user.Gems += r.Gems
}

// completeLesson 课时首次完成时计数并向上级联
func (cp *completion) completeLesson(pos Position) bool {
	ch, ls := pos.Chapter(), pos.Lesson()
	lp := cp.tree.Lesson(ch.ID, ls.ID)
	if !lp.MarkCompleted(cp.now) {
		return false
	}
	cp.user.CompletedLessons++
	cp.result.LessonCompleted = true
	cp.firsts = append(cp.firsts, "lesson")
	cp.cascade(pos.ChapterIndex)
	return true
}

// cascade 课时→章节→课程，每一级只在自身首次完成时发放奖励
func (cp *completion) cascade(chapterIndex int) {
	ch := &cp.course.Chapters[chapterIndex]
	if cp.tree.ChapterLessonsCompleted(ch) && cp.tree.Chapter(ch.ID).MarkCompleted(cp.now) {
		cp.grant(ChapterBonus())
		cp.user.CompletedChapters++
		cp.result.ChapterCompleted = true
		cp.firsts = append(cp.firsts, "chapter")
	}
	if !cp.progress.Completed && cp.tree.AllChaptersCompleted(cp.course) {
		now := cp.now
		cp.progress.Completed = true
		cp.progress.CompletionDate = &now
		cp.grant(CourseBonus())
		cp.user.CompletedCourses++
		cp.firsts = append(cp.firsts, "course")
	}
}

// recordGraded 记录一次判分提交，写入答题日志
func (cp *completion) recordGraded(kind model.AttemptKind, slug string, score float64, passed bool, timeLeft int) {
	cp.event = BadgeEvent{Graded: true, Kind: kind, Score: score, Passed: passed}
	cp.attempt = &model.QuizAttempt{
		UserID:      cp.user.ID,
		CourseID:    cp.course.ID,
		Kind:        kind,
		Slug:        slug,
		Score:       score,
		Passed:      passed,
		TimeLeft:    timeLeft,
		AttemptedAt: cp.now,
	}
	cp.result.Score = &score
	cp.result.Passed = &passed
}

// finish 重新计算等级、徽章、完成度和下一项，并组装结果
func (cp *completion) finish(next *Position) {
	newLevel := cp.policy.Level.Level(cp.user.XP)
	if newLevel > cp.oldLevel {
		cp.grant(Reward{Gems: LevelUpGems})
		cp.result.LevelUp = true
	}
	if newLevel > cp.user.Level {
		cp.user.Level = newLevel
	}

	awarded := EvaluateBadges(cp.badges, cp.user, cp.event)

	cp.progress.CompletionPercentage = cp.tree.CompletionPercentage(cp.course)
	if next != nil {
		cp.progress.CurrentChapterIndex = next.ChapterIndex
		cp.progress.CurrentLessonIndex = next.LessonIndex
		slug := next.Lesson().Slug
		cp.result.NextItemSlug = &slug
	}
	cp.progress.SetProgressTree(cp.tree)

	if cp.attempt != nil {
		cp.attempt.XPGained = cp.reward.XP
		cp.attempt.GemsGained = cp.reward.Gems
	}

	cp.result.XPGained = cp.reward.XP
	cp.result.GemsGained = cp.reward.Gems
	cp.result.NewXP = cp.user.XP
	cp.result.NewGems = cp.user.Gems
	cp.result.NewLevel = cp.user.Level
	cp.result.CompletionPercentage = cp.progress.CompletionPercentage
	cp.result.IsCompleted = cp.progress.Completed
	cp.result.NewlyAwardedBadges = awarded
}

// nextLessonAfter 同章下一课，否则下一个非空章节的第一课
func nextLessonAfter(course *model.Course, chapterIndex, lessonIndex int) *Position {
	ci, li, ok := course.NextLesson(chapterIndex, lessonIndex)
	if !ok {
		return nil
	}
	return &Position{Course: course, Kind: SlugLesson, ChapterIndex: ci, LessonIndex: li}
}

// commit 单事务写回；失败时内存中的修改随请求丢弃
func (s *CompletionService) commit(ctx context.Context, cp *completion) error {
	err := s.ProgressRepo.SaveCompletion(ctx, &repository.CompletionWrite{
		User:        cp.user,
		Progress:    cp.progress,
		NewProgress: cp.newProgress,
		Badges:      cp.badges.Rows(cp.user.ID, cp.now),
		Attempt:     cp.attempt,
	})
	if err != nil {
		if errors.Is(err, util.ErrConcurrentModification) {
			monitoring.ConcurrentConflicts.Inc()
			logger.Log.Warn("Completion rejected by version check",
				zap.Uint("userID", cp.user.ID),
				zap.String("courseID", cp.course.ID))
			return err
		}
		return fmt.Errorf("save completion: %w", err)
	}

	for _, kind := range cp.firsts {
		monitoring.CompletionCounter.WithLabelValues(kind).Inc()
	}
	monitoring.XPGranted.Add(float64(cp.reward.XP))
	monitoring.GemsGranted.Add(float64(cp.reward.Gems))
	for _, b := range cp.result.NewlyAwardedBadges {
		monitoring.BadgesAwarded.WithLabelValues(b).Inc()
	}

	if cp.reward.XP > 0 || cp.reward.Gems > 0 || len(cp.result.NewlyAwardedBadges) > 0 {
		logger.Log.Info("Rewards granted",
			zap.Uint("userID", cp.user.ID),
			zap.String("courseID", cp.course.ID),
			zap.Int("xp", cp.reward.XP),
			zap.Int("gems", cp.reward.Gems),
			zap.Bool("levelUp", cp.result.LevelUp),
			zap.Strings("badges", cp.result.NewlyAwardedBadges))
	}
	return nil
}

// checkQuota 判分前检查每日次数，超限时不做任何修改
func (s *CompletionService) checkQuota(ctx context.Context, cp *completion) error {
	tier, err := s.Tiers.Tier(ctx, cp.user.ID)
	if err != nil {
		return fmt.Errorf("resolve subscription tier: %w", err)
	}
	if err := s.Quota.Check(cp.policy, cp.user, tier, cp.now); err != nil {
		monitoring.QuotaRejections.WithLabelValues(string(tier)).Inc()
		return err
	}
	return nil
}

func validateAnswers(answers map[string]Answer) error {
	if answers == nil {
		return util.NewValidationError("answers", "answers are required")
	}
	return nil
}

// Enroll 创建进度记录，重复报名返回 ErrAlreadyEnrolled
func (s *CompletionService) Enroll(ctx context.Context, userID uint, courseID string) (prog *model.CourseProgress, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.Enroll",
		attribute.Int64("user.id", int64(userID)), attribute.String("course.id", courseID))
	defer func() { tracing.EndSpan(span, err) }()

	course, err := s.Catalog.FindCourseByID(courseID)
	if err != nil {
		return nil, err
	}
	if _, err = s.UserRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	prog = model.NewCourseProgress(userID, course)
	if err = s.ProgressRepo.Create(ctx, prog); err != nil {
		return nil, err
	}
	monitoring.CompletionCounter.WithLabelValues("enroll").Inc()
	logger.Log.Info("User enrolled", zap.Uint("userID", userID), zap.String("courseID", courseID))
	return prog, nil
}

// CompleteLesson 标记课时完成，未报名时自动报名
func (s *CompletionService) CompleteLesson(ctx context.Context, userID uint, lessonSlug string) (res *CompletionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.CompleteLesson",
		attribute.Int64("user.id", int64(userID)), attribute.String("lesson.slug", lessonSlug))
	defer func() { tracing.EndSpan(span, err) }()

	pos, err := s.Catalog.ResolveLesson(lessonSlug)
	if err != nil {
		return nil, err
	}
	cp, err := s.begin(ctx, userID, pos.Course, true)
	if err != nil {
		return nil, err
	}

	if cp.completeLesson(pos) {
		cp.grant(LessonReward())
	}
	cp.finish(nextLessonAfter(pos.Course, pos.ChapterIndex, pos.LessonIndex))

	if err = s.commit(ctx, cp); err != nil {
		return nil, err
	}
	return &cp.result, nil
}

// CompleteLessonQuiz 课时测验判分，需要已报名并受每日次数限制
func (s *CompletionService) CompleteLessonQuiz(ctx context.Context, userID uint, lessonSlug string, sub LessonQuizSubmission) (res *CompletionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.CompleteLessonQuiz",
		attribute.Int64("user.id", int64(userID)), attribute.String("lesson.slug", lessonSlug))
	defer func() { tracing.EndSpan(span, err) }()

	pos, err := s.Catalog.ResolveLesson(lessonSlug)
	if err != nil {
		return nil, err
	}
	quiz := pos.Lesson().Quiz
	if sub.Answers != nil && quiz == nil {
		return nil, util.NewValidationError("answers", "lesson has no quiz to grade")
	}
	if sub.Answers == nil {
		if sub.Score == nil {
			return nil, util.NewValidationError("score", "score or answers are required")
		}
		if math.IsNaN(*sub.Score) || *sub.Score < 0 || *sub.Score > 100 {
			return nil, util.NewValidationError("score", "score must be between 0 and 100")
		}
	}

	cp, err := s.begin(ctx, userID, pos.Course, false)
	if err != nil {
		return nil, err
	}
	if err = s.checkQuota(ctx, cp); err != nil {
		return nil, err
	}

	var score float64
	if sub.Answers != nil {
		score = Grade(quiz, sub.Answers).Score
	} else {
		score = *sub.Score
	}
	passed := score >= float64(PassingScore(quiz, cp.policy.PassingScore))

	lp := cp.tree.Lesson(pos.Chapter().ID, pos.Lesson().ID)
	firstPass, _ := lp.QuizProgress.RecordAttempt(score, passed, cp.now)
	s.Quota.Record(cp.policy, cp.user, passed, cp.now)
	cp.recordGraded(model.AttemptLessonQuiz, lessonSlug, score, passed, 0)

	if firstPass {
		cp.user.PassedQuizzes++
		cp.firsts = append(cp.firsts, "lesson_quiz")
	}
	// 测验奖励代替课时奖励，课时已完成过则不再发放
	if passed && cp.completeLesson(pos) {
		cp.grant(LessonQuizReward(score))
	}
	cp.finish(nextLessonAfter(pos.Course, pos.ChapterIndex, pos.LessonIndex))

	if err = s.commit(ctx, cp); err != nil {
		return nil, err
	}
	return &cp.result, nil
}

// CompleteChapterQuiz 章节测验，仅首次通过发放奖励
func (s *CompletionService) CompleteChapterQuiz(ctx context.Context, userID uint, quizSlug string, sub ChapterQuizSubmission) (res *CompletionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.CompleteChapterQuiz",
		attribute.Int64("user.id", int64(userID)), attribute.String("quiz.slug", quizSlug))
	defer func() { tracing.EndSpan(span, err) }()

	pos, err := s.Catalog.ResolveChapterQuiz(quizSlug)
	if err != nil {
		return nil, err
	}
	if err = validateAnswers(sub.Answers); err != nil {
		return nil, err
	}
	if sub.TimeLeft < 0 {
		return nil, util.NewValidationError("timeLeft", "timeLeft must not be negative")
	}

	cp, err := s.begin(ctx, userID, pos.Course, false)
	if err != nil {
		return nil, err
	}
	if err = s.checkQuota(ctx, cp); err != nil {
		return nil, err
	}

	quiz := pos.Quiz()
	score := Grade(quiz, sub.Answers).Score
	passed := score >= float64(PassingScore(quiz, cp.policy.PassingScore))

	chp := cp.tree.Chapter(pos.Chapter().ID)
	firstPass, _ := chp.EndOfChapterQuiz.RecordAttempt(score, passed, cp.now)
	s.Quota.Record(cp.policy, cp.user, passed, cp.now)
	cp.recordGraded(model.AttemptChapterQuiz, quizSlug, score, passed, sub.TimeLeft)

	if firstPass {
		cp.grant(ChapterQuizReward(score))
		cp.user.PassedQuizzes++
		cp.firsts = append(cp.firsts, "chapter_quiz")
	}
	lastLesson := len(pos.Chapter().Lessons) - 1
	cp.finish(nextLessonAfter(pos.Course, pos.ChapterIndex, lastLesson))

	if err = s.commit(ctx, cp); err != nil {
		return nil, err
	}
	return &cp.result, nil
}

// CompleteFinalExam 期末考试不限次数；通过且刷新最高分时按本次得分重新发放奖励
func (s *CompletionService) CompleteFinalExam(ctx context.Context, userID uint, examSlug string, sub ExamSubmission) (res *CompletionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.CompleteFinalExam",
		attribute.Int64("user.id", int64(userID)), attribute.String("exam.slug", examSlug))
	defer func() { tracing.EndSpan(span, err) }()

	pos, err := s.Catalog.ResolveFinalExam(examSlug)
	if err != nil {
		return nil, err
	}
	if err = validateAnswers(sub.Answers); err != nil {
		return nil, err
	}

	cp, err := s.begin(ctx, userID, pos.Course, false)
	if err != nil {
		return nil, err
	}

	exam := pos.Quiz()
	score := Grade(exam, sub.Answers).Score
	passed := score >= float64(PassingScore(exam, cp.policy.PassingScore))

	firstPass, newBest := cp.tree.FinalExam.RecordAttempt(score, passed, cp.now)
	cp.recordGraded(model.AttemptFinalExam, examSlug, score, passed, 0)

	if passed && newBest {
		cp.grant(FinalExamReward(score))
	}
	if firstPass {
		cp.user.PassedQuizzes++
		cp.firsts = append(cp.firsts, "final_exam")
	}
	cp.finish(nil)

	if err = s.commit(ctx, cp); err != nil {
		return nil, err
	}
	return &cp.result, nil
}

// RecordExercise 记录练习得分，只保留最高分，不发放奖励
func (s *CompletionService) RecordExercise(ctx context.Context, userID uint, lessonSlug, exerciseID string, pointsEarned int) (entry *model.ProgressEntry, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.RecordExercise",
		attribute.Int64("user.id", int64(userID)), attribute.String("lesson.slug", lessonSlug))
	defer func() { tracing.EndSpan(span, err) }()

	pos, err := s.Catalog.ResolveLesson(lessonSlug)
	if err != nil {
		return nil, err
	}
	ex, ok := pos.Lesson().FindExercise(exerciseID)
	if !ok {
		return nil, fmt.Errorf("exercise %q: %w", exerciseID, util.ErrNotFound)
	}
	if pointsEarned < 0 || pointsEarned > ex.MaxPoints {
		return nil, util.NewValidationError("pointsEarned", fmt.Sprintf("must be between 0 and %d", ex.MaxPoints))
	}

	cp, err := s.begin(ctx, userID, pos.Course, false)
	if err != nil {
		return nil, err
	}

	entry = cp.tree.Lesson(pos.Chapter().ID, pos.Lesson().ID).Exercises[ex.ID]
	entry.MaxPoints = ex.MaxPoints
	if pointsEarned > entry.PointsEarned {
		entry.PointsEarned = pointsEarned
	}
	if entry.PointsEarned >= entry.MaxPoints {
		entry.Completed = true
	}
	cp.finish(nil)

	if err = s.commit(ctx, cp); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetProgress 返回与当前目录对齐后的进度，只读
func (s *CompletionService) GetProgress(ctx context.Context, userID uint, courseID string) (*model.CourseProgress, error) {
	course, err := s.Catalog.FindCourseByID(courseID)
	if err != nil {
		return nil, err
	}
	progress, err := s.ProgressRepo.FindByUserAndCourse(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	tree := progress.ProgressTree()
	tree.Reconcile(course)
	progress.SetProgressTree(tree)
	progress.CompletionPercentage = tree.CompletionPercentage(course)
	return progress, nil
}

func (s *CompletionService) GetLedger(ctx context.Context, userID uint) (*Ledger, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.BadgeRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	tier, err := s.Tiers.Tier(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := s.Policies.Get()
	now := s.Clock.Now()
	return &Ledger{
		UserID:             user.ID,
		XP:                 user.XP,
		Gems:               user.Gems,
		Level:              user.Level,
		LevelPolicy:        p.Level.Name(),
		CompletedLessons:   user.CompletedLessons,
		CompletedChapters:  user.CompletedChapters,
		CompletedCourses:   user.CompletedCourses,
		PassedQuizzes:      user.PassedQuizzes,
		Tier:               tier,
		DailyQuizLimit:     s.Quota.Limit(p, tier),
		DailyQuizRemaining: s.Quota.Remaining(p, user, tier, now),
		Badges:             badges,
	}, nil
}

func (s *CompletionService) ListAttempts(ctx context.Context, userID uint, limit int) ([]model.QuizAttempt, error) {
	return s.AttemptRepo.ListByUser(ctx, userID, limit)
}
