package model

import (
	"math"
	"time"
)

func NewProgressTree(course *Course) *ProgressTree {
	t := &ProgressTree{Chapters: make(map[string]*ChapterProgress, len(course.Chapters))}
	t.Reconcile(course)
	return t
}

// Reconcile 为课程中新出现的章节、课时、练习补齐未完成的条目。
// 已有条目保持不变，课程中已删除的条目保留但不参与统计。
func (t *ProgressTree) Reconcile(course *Course) bool {
	changed := false
	if t.Chapters == nil {
		t.Chapters = make(map[string]*ChapterProgress, len(course.Chapters))
		changed = true
	}
	for i := range course.Chapters {
		ch := &course.Chapters[i]
		cp, ok := t.Chapters[ch.ID]
		if !ok {
			cp = &ChapterProgress{}
			t.Chapters[ch.ID] = cp
			changed = true
		}
		if cp.Lessons == nil {
			cp.Lessons = make(map[string]*LessonProgress, len(ch.Lessons))
		}
		for j := range ch.Lessons {
			ls := &ch.Lessons[j]
			lp, ok := cp.Lessons[ls.ID]
			if !ok {
				lp = &LessonProgress{}
				cp.Lessons[ls.ID] = lp
				changed = true
			}
			if lp.Exercises == nil {
				lp.Exercises = make(map[string]*ProgressEntry)
			}
			for _, ex := range ls.Exercises() {
				if _, ok := lp.Exercises[ex.ID]; !ok {
					lp.Exercises[ex.ID] = &ProgressEntry{MaxPoints: ex.MaxPoints}
					changed = true
				}
			}
		}
	}
	return changed
}

func (t *ProgressTree) Chapter(chapterID string) *ChapterProgress {
	return t.Chapters[chapterID]
}

func (t *ProgressTree) Lesson(chapterID, lessonID string) *LessonProgress {
	cp := t.Chapters[chapterID]
	if cp == nil {
		return nil
	}
	return cp.Lessons[lessonID]
}

// ChapterLessonsCompleted 章节下所有课时都已完成（空章节视为未完成）
func (t *ProgressTree) ChapterLessonsCompleted(ch *Chapter) bool {
	if len(ch.Lessons) == 0 {
		return false
	}
	for _, ls := range ch.Lessons {
		lp := t.Lesson(ch.ID, ls.ID)
		if lp == nil || !lp.Completed {
			return false
		}
	}
	return true
}

// AllChaptersCompleted 所有非空章节都已完成
func (t *ProgressTree) AllChaptersCompleted(course *Course) bool {
	found := false
	for i := range course.Chapters {
		ch := &course.Chapters[i]
		if len(ch.Lessons) == 0 {
			continue
		}
		found = true
		cp := t.Chapter(ch.ID)
		if cp == nil || !cp.Completed {
			return false
		}
	}
	return found
}

func (t *ProgressTree) CompletedLessons(course *Course) int {
	n := 0
	for _, ch := range course.Chapters {
		for _, ls := range ch.Lessons {
			if lp := t.Lesson(ch.ID, ls.ID); lp != nil && lp.Completed {
				n++
			}
		}
	}
	return n
}

// CompletionPercentage = round(100 * completed / total)，每次重新计算
func (t *ProgressTree) CompletionPercentage(course *Course) int {
	total := course.TotalLessons()
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(t.CompletedLessons(course)) / float64(total)))
}

// MarkCompleted 只允许 false→true，返回是否为首次完成
func (lp *LessonProgress) MarkCompleted(now time.Time) bool {
	if lp.Completed {
		return false
	}
	lp.Completed = true
	lp.CompletionDate = &now
	return true
}

func (cp *ChapterProgress) MarkCompleted(now time.Time) bool {
	if cp.Completed {
		return false
	}
	cp.Completed = true
	cp.CompletionDate = &now
	return true
}

// RecordAttempt 记录一次判分提交。
// firstPass：首次达到及格；newBest：本次得分高于此前最高分。
func (q *QuizProgress) RecordAttempt(score float64, passed bool, now time.Time) (firstPass, newBest bool) {
	newBest = q.Attempts == 0 || score > q.Score
	q.Attempts++
	q.LastScore = score
	q.LastAttemptDate = &now
	if score > q.Score {
		q.Score = score
	}
	if passed && !q.Completed {
		q.Completed = true
		firstPass = true
	}
	return firstPass, newBest
}
