package service

import (
	"context"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/util"
	"edu_progress_backend/pkg/logger"
	"edu_progress_backend/pkg/monitoring"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type SlugKind string

const (
	SlugLesson      SlugKind = "lesson"
	SlugChapterQuiz SlugKind = "chapter_quiz"
	SlugFinalExam   SlugKind = "final_exam"
)

// Position 课时、章节测验或期末考试在课程中的位置。
// 章节测验的 LessonIndex 为 -1，期末考试的两个下标均为 -1。
type Position struct {
	Course       *model.Course
	Kind         SlugKind
	ChapterIndex int
	LessonIndex  int
}

func (p Position) Chapter() *model.Chapter {
	if p.ChapterIndex < 0 {
		return nil
	}
	return &p.Course.Chapters[p.ChapterIndex]
}

func (p Position) Lesson() *model.Lesson {
	if p.ChapterIndex < 0 || p.LessonIndex < 0 {
		return nil
	}
	return &p.Course.Chapters[p.ChapterIndex].Lessons[p.LessonIndex]
}

// Quiz 该位置对应的测验，课时无测验时为 nil
func (p Position) Quiz() *model.Quiz {
	switch p.Kind {
	case SlugChapterQuiz:
		return p.Chapter().Quiz
	case SlugFinalExam:
		return p.Course.FinalExam
	default:
		return p.Lesson().Quiz
	}
}

type catalogIndex struct {
	courses    []*model.Course
	byID       map[string]*model.Course
	bySlug     map[string]*model.Course
	byItemSlug map[string]Position
	loadedAt   time.Time
}

// buildCatalogIndex 校验并建立索引：课程 id 唯一，
// 课时、章节测验、期末考试的 slug 全局唯一，同一课程内章节和课时 id 唯一。
func buildCatalogIndex(courses []*model.Course, now time.Time) (*catalogIndex, error) {
	idx := &catalogIndex{
		courses:    courses,
		byID:       make(map[string]*model.Course, len(courses)),
		bySlug:     make(map[string]*model.Course, len(courses)),
		byItemSlug: make(map[string]Position),
		loadedAt:   now,
	}

	addItem := func(slug string, pos Position) error {
		if slug == "" {
			return fmt.Errorf("course %s: empty %s slug", pos.Course.ID, pos.Kind)
		}
		if prev, ok := idx.byItemSlug[slug]; ok {
			return fmt.Errorf("duplicate slug %q in courses %s and %s", slug, prev.Course.ID, pos.Course.ID)
		}
		idx.byItemSlug[slug] = pos
		return nil
	}

	for _, c := range courses {
		if _, ok := idx.byID[c.ID]; ok {
			return nil, fmt.Errorf("duplicate course id %q", c.ID)
		}
		idx.byID[c.ID] = c
		if c.Slug != "" {
			if _, ok := idx.bySlug[c.Slug]; ok {
				return nil, fmt.Errorf("duplicate course slug %q", c.Slug)
			}
			idx.bySlug[c.Slug] = c
		}

		chapterIDs := make(map[string]struct{}, len(c.Chapters))
		for ci := range c.Chapters {
			ch := &c.Chapters[ci]
			if _, ok := chapterIDs[ch.ID]; ok || ch.ID == "" {
				return nil, fmt.Errorf("course %s: invalid or duplicate chapter id %q", c.ID, ch.ID)
			}
			chapterIDs[ch.ID] = struct{}{}

			lessonIDs := make(map[string]struct{}, len(ch.Lessons))
			for li := range ch.Lessons {
				ls := &ch.Lessons[li]
				if _, ok := lessonIDs[ls.ID]; ok || ls.ID == "" {
					return nil, fmt.Errorf("course %s: invalid or duplicate lesson id %q", c.ID, ls.ID)
				}
				lessonIDs[ls.ID] = struct{}{}
				if err := addItem(ls.Slug, Position{Course: c, Kind: SlugLesson, ChapterIndex: ci, LessonIndex: li}); err != nil {
					return nil, err
				}
			}
			if ch.Quiz != nil {
				if err := addItem(ch.Quiz.Slug, Position{Course: c, Kind: SlugChapterQuiz, ChapterIndex: ci, LessonIndex: -1}); err != nil {
					return nil, err
				}
			}
		}
		if c.FinalExam != nil {
			if err := addItem(c.FinalExam.Slug, Position{Course: c, Kind: SlugFinalExam, ChapterIndex: -1, LessonIndex: -1}); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// CatalogService 只读课程目录，刷新时整体替换快照
type CatalogService struct {
	Source repository.CatalogSource

	index atomic.Pointer[catalogIndex]
	group singleflight.Group
}

func NewCatalogService(source repository.CatalogSource) *CatalogService {
	return &CatalogService{Source: source}
}

// Refresh 重新加载目录；并发调用合并为一次，校验失败保留旧快照
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		courses, err := s.Source.LoadCourses(ctx)
		if err != nil {
			return 0, fmt.Errorf("load catalog from %s: %w", s.Source.Name(), err)
		}
		idx, err := buildCatalogIndex(courses, time.Now())
		if err != nil {
			return 0, fmt.Errorf("build catalog index: %w", err)
		}
		s.index.Store(idx)
		monitoring.CatalogCourses.Set(float64(len(courses)))
		logger.Log.Info("Catalog refreshed",
			zap.String("source", s.Source.Name()),
			zap.Int("courses", len(courses)),
			zap.Int("slugs", len(idx.byItemSlug)))
		return len(courses), nil
	})
	if err != nil {
		monitoring.CatalogRefreshFailures.Inc()
		logger.Log.Error("Catalog refresh failed", zap.Error(err))
		return 0, err
	}
	return v.(int), nil
}

// Load 直接使用给定课程建立快照
func (s *CatalogService) Load(courses []*model.Course) error {
	idx, err := buildCatalogIndex(courses, time.Now())
	if err != nil {
		return err
	}
	s.index.Store(idx)
	return nil
}

func (s *CatalogService) snapshot() *catalogIndex {
	if idx := s.index.Load(); idx != nil {
		return idx
	}
	return &catalogIndex{}
}

func (s *CatalogService) Courses() []*model.Course {
	return s.snapshot().courses
}

func (s *CatalogService) LoadedAt() time.Time {
	return s.snapshot().loadedAt
}

func (s *CatalogService) FindCourseByID(id string) (*model.Course, error) {
	if c, ok := s.snapshot().byID[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%q: %w", id, util.ErrCourseNotFound)
}

// FindCourse 按课程 id 或课程 slug 查找
func (s *CatalogService) FindCourse(idOrSlug string) (*model.Course, error) {
	idx := s.snapshot()
	if c, ok := idx.byID[idOrSlug]; ok {
		return c, nil
	}
	if c, ok := idx.bySlug[idOrSlug]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%q: %w", idOrSlug, util.ErrCourseNotFound)
}

// FindCourseContainingSlug 在课时、章节测验、期末考试 slug 中查找所属课程
func (s *CatalogService) FindCourseContainingSlug(slug string) (*model.Course, error) {
	pos, ok := s.snapshot().byItemSlug[slug]
	if !ok {
		return nil, fmt.Errorf("slug %q: %w", slug, util.ErrNotFound)
	}
	return pos.Course, nil
}

func (s *CatalogService) resolve(slug string, kind SlugKind) (Position, error) {
	pos, ok := s.snapshot().byItemSlug[slug]
	if !ok || pos.Kind != kind {
		return Position{}, fmt.Errorf("%s %q: %w", kind, slug, util.ErrNotFound)
	}
	return pos, nil
}

func (s *CatalogService) ResolveLesson(slug string) (Position, error) {
	return s.resolve(slug, SlugLesson)
}

func (s *CatalogService) ResolveChapterQuiz(slug string) (Position, error) {
	return s.resolve(slug, SlugChapterQuiz)
}

func (s *CatalogService) ResolveFinalExam(slug string) (Position, error) {
	return s.resolve(slug, SlugFinalExam)
}
