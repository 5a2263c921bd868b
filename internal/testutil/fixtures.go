package testutil

import (
	"edu_progress_backend/internal/model"
	"fmt"
)

// TwoByTwoCourse 两章、每章两课；第一课带测验，第一章带章节测验，课程带期末考试。
// 所有测验每题 1 分，答案为 "a<题号>"。
func TwoByTwoCourse() *model.Course {
	return &model.Course{
		ID:    "course-1",
		Slug:  "course-one",
		Title: "Course One",
		Chapters: []model.Chapter{
			{
				ID: "ch-1", Slug: "chapter-one", Title: "Chapter One",
				Lessons: []model.Lesson{
					{
						ID: "l-1-1", Slug: "lesson-1-1", Title: "Lesson 1.1",
						Parts: []model.Part{{ID: "p1", Exercise: &model.Exercise{ID: "ex-1", MaxPoints: 10}}},
						Quiz:  Quiz("quiz-1-1", 0, 10),
					},
					{ID: "l-1-2", Slug: "lesson-1-2", Title: "Lesson 1.2"},
				},
				Quiz: Quiz("chapter-quiz-1", 70, 10),
			},
			{
				ID: "ch-2", Slug: "chapter-two", Title: "Chapter Two",
				Lessons: []model.Lesson{
					{ID: "l-2-1", Slug: "lesson-2-1", Title: "Lesson 2.1"},
					{ID: "l-2-2", Slug: "lesson-2-2", Title: "Lesson 2.2"},
				},
			},
		},
		FinalExam: Quiz("final-exam-1", 70, 20),
	}
}

// Quiz n 道 exact 题，每题 1 分
func Quiz(slug string, passingScore, n int) *model.Quiz {
	q := &model.Quiz{ID: "id-" + slug, Slug: slug, PassingScore: passingScore, Duration: 10}
	for i := 1; i <= n; i++ {
		q.Questions = append(q.Questions, model.Question{
			ID:     fmt.Sprintf("q%d", i),
			Points: 1,
			Answer: model.AnswerSpec{Type: model.AnswerExact, Value: fmt.Sprintf("a%d", i)},
		})
	}
	return q
}
