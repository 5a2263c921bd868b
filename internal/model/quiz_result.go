package model

import "time"

type AttemptKind string

const (
	AttemptLessonQuiz  AttemptKind = "lesson_quiz"
	AttemptChapterQuiz AttemptKind = "chapter_quiz"
	AttemptFinalExam   AttemptKind = "final_exam"
)

// QuizAttempt 判分提交日志，与账本在同一事务中写入
type QuizAttempt struct {
	UUIDBase
	UserID      uint        `gorm:"index;not null" json:"userId"`
	CourseID    string      `gorm:"size:64;index" json:"courseId"`
	Kind        AttemptKind `gorm:"size:32;not null" json:"kind"`
	Slug        string      `gorm:"size:191;not null" json:"slug"`
	Score       float64     `gorm:"not null" json:"score"`
	Passed      bool        `gorm:"default:false" json:"passed"`
	XPGained    int         `gorm:"default:0" json:"xpGained"`
	GemsGained  int         `gorm:"default:0" json:"gemsGained"`
	TimeLeft    int         `gorm:"default:0" json:"timeLeft"` // 秒
	AttemptedAt time.Time   `gorm:"index;not null" json:"attemptedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
