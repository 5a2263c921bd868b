package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 由身份域创建，本服务只扩展奖励账本字段。
// XP、Gems 只增不减；Version 用于乐观锁。
type User struct {
	BaseModel
	Name  string `gorm:"size:100" json:"name"`
	Email string `gorm:"size:100;index" json:"email"`

	XP                int `gorm:"default:0;not null" json:"xp"`
	Gems              int `gorm:"default:0;not null" json:"gems"`
	Level             int `gorm:"default:1;not null" json:"level"`
	CompletedLessons  int `gorm:"default:0;not null" json:"completedLessons"`
	CompletedChapters int `gorm:"default:0;not null" json:"completedChapters"`
	CompletedCourses  int `gorm:"default:0;not null" json:"completedCourses"`
	PassedQuizzes     int `gorm:"default:0;not null" json:"passedQuizzes"`

	DailyQuizCount     int        `gorm:"default:0;not null" json:"dailyQuizCount"`
	LastQuizDate       *time.Time `json:"lastQuizDate"`
	LastQuizCompletion *time.Time `json:"lastQuizCompletion"`

	Version int `gorm:"default:0;not null" json:"-"`
}

func (User) TableName() string {
	return "users"
}
