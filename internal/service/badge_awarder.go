package service

import (
	"edu_progress_backend/internal/model"
	"time"
)

const (
	BadgeFirstLesson     = "first_lesson"
	BadgeFirstQuizPassed = "first_quiz_passed"
	BadgeFirstChapter    = "first_chapter"
	BadgeFirstCourse     = "first_course"
	BadgePerfectScore    = "perfect_score"
	BadgeExamAce         = "exam_ace"
	BadgeLevel5          = "level_5"
	BadgeXP10000         = "xp_10000"
)

type BadgeDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var BadgeDefinitions = []BadgeDefinition{
	{ID: BadgeFirstLesson, Name: "First Steps", Description: "Complete your first lesson"},
	{ID: BadgeFirstQuizPassed, Name: "Quiz Taker", Description: "Pass your first quiz"},
	{ID: BadgeFirstChapter, Name: "Chapter Closer", Description: "Complete your first chapter"},
	{ID: BadgeFirstCourse, Name: "Graduate", Description: "Complete your first course"},
	{ID: BadgePerfectScore, Name: "Perfectionist", Description: "Score 100 on a quiz or exam"},
	{ID: BadgeExamAce, Name: "Exam Ace", Description: "Score 90 or more on a final exam"},
	{ID: BadgeLevel5, Name: "Rising Star", Description: "Reach level 5"},
	{ID: BadgeXP10000, Name: "XP Hoarder", Description: "Earn 10000 XP"},
}

// BadgeLedger 用户已持有徽章（来自 user_badges）及本次请求新增的徽章
type BadgeLedger struct {
	owned   map[string]struct{}
	awarded []string
}

func NewBadgeLedger(owned map[string]struct{}) *BadgeLedger {
	if owned == nil {
		owned = make(map[string]struct{})
	}
	return &BadgeLedger{owned: owned}
}

func (l *BadgeLedger) Has(id string) bool {
	_, ok := l.owned[id]
	return ok
}

// Awarded 本次请求新增的徽章，按授予顺序
func (l *BadgeLedger) Awarded() []string {
	return append([]string{}, l.awarded...)
}

// Rows 新增徽章对应的待写入行
func (l *BadgeLedger) Rows(userID uint, now time.Time) []model.UserBadge {
	rows := make([]model.UserBadge, 0, len(l.awarded))
	for _, id := range l.awarded {
		rows = append(rows, model.UserBadge{UserID: userID, BadgeID: id, AwardedAt: now})
	}
	return rows
}

// AwardBadge 已持有时返回 false 且不做任何修改
func AwardBadge(ledger *BadgeLedger, badgeID string) bool {
	if ledger.Has(badgeID) {
		return false
	}
	ledger.owned[badgeID] = struct{}{}
	ledger.awarded = append(ledger.awarded, badgeID)
	return true
}

// BadgeEvent 一次请求中被判分的提交，非判分请求 Graded 为 false
type BadgeEvent struct {
	Graded bool
	Kind   model.AttemptKind
	Score  float64
	Passed bool
}

// EvaluateBadges 使用修改后的账本评估全部规则，返回新增徽章
func EvaluateBadges(ledger *BadgeLedger, user *model.User, ev BadgeEvent) []string {
	before := len(ledger.awarded)
	check := func(cond bool, id string) {
		if cond {
			AwardBadge(ledger, id)
		}
	}

	check(user.CompletedLessons >= 1, BadgeFirstLesson)
	check(user.PassedQuizzes >= 1, BadgeFirstQuizPassed)
	check(user.CompletedChapters >= 1, BadgeFirstChapter)
	check(user.CompletedCourses >= 1, BadgeFirstCourse)
	check(ev.Graded && ev.Passed && ev.Score >= 100, BadgePerfectScore)
	check(ev.Graded && ev.Passed && ev.Kind == model.AttemptFinalExam && ev.Score >= 90, BadgeExamAce)
	check(user.Level >= 5, BadgeLevel5)
	check(user.XP >= 10000, BadgeXP10000)

	return append([]string{}, ledger.awarded[before:]...)
}
