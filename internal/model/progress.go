package model

import (
	"time"

	"gorm.io/datatypes"
)

// CourseProgress 是 (用户, 课程) 的进度聚合，整体读写，Version 做乐观锁。
type CourseProgress struct {
	UUIDBase
	UserID               uint                              `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"userId"`
	CourseID             string                            `gorm:"size:64;not null;uniqueIndex:idx_progress_user_course" json:"courseId"`
	Completed            bool                              `gorm:"default:false" json:"completed"`
	CompletionDate       *time.Time                        `json:"completionDate"`
	CurrentChapterIndex  int                               `gorm:"default:0" json:"currentChapterIndex"`
	CurrentLessonIndex   int                               `gorm:"default:0" json:"currentLessonIndex"`
	CompletionPercentage int                               `gorm:"default:0" json:"completionPercentage"`
	Version              int                               `gorm:"default:0;not null" json:"-"`
	Tree                 datatypes.JSONType[*ProgressTree] `json:"tree"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// NewCourseProgress 报名时创建进度，结构与课程一一对应
func NewCourseProgress(userID uint, course *Course) *CourseProgress {
	return &CourseProgress{
		UserID:   userID,
		CourseID: course.ID,
		Tree:     datatypes.NewJSONType(NewProgressTree(course)),
	}
}

// ProgressTree 取出可修改的进度树，修改后需 SetProgressTree 写回
func (p *CourseProgress) ProgressTree() *ProgressTree {
	t := p.Tree.Data()
	if t == nil {
		t = &ProgressTree{}
	}
	return t
}

func (p *CourseProgress) SetProgressTree(t *ProgressTree) {
	p.Tree = datatypes.NewJSONType(t)
}

type QuizProgress struct {
	Completed       bool       `json:"completed"`
	Score           float64    `json:"score"` // 最高分
	LastScore       float64    `json:"lastScore"`
	Attempts        int        `json:"attempts"`
	LastAttemptDate *time.Time `json:"lastAttemptDate,omitempty"`
}

type ProgressEntry struct {
	Completed    bool `json:"completed"`
	PointsEarned int  `json:"pointsEarned"`
	MaxPoints    int  `json:"maxPoints"`
}

type LessonProgress struct {
	Completed      bool                      `json:"completed"`
	CompletionDate *time.Time                `json:"completionDate,omitempty"`
	Exercises      map[string]*ProgressEntry `json:"exercises"`
	QuizProgress   QuizProgress              `json:"quizProgress"`
}

type ChapterProgress struct {
	Completed        bool                       `json:"completed"`
	CompletionDate   *time.Time                 `json:"completionDate,omitempty"`
	Lessons          map[string]*LessonProgress `json:"lessons"`
	EndOfChapterQuiz QuizProgress               `json:"endOfChapterQuiz"`
}

// ProgressTree 按章节/课时 ID 索引，而不是按位置
type ProgressTree struct {
	Chapters  map[string]*ChapterProgress `json:"chapters"`
	FinalExam QuizProgress                `json:"finalExam"`
}
