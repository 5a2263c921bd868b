package model

// 课程内容由内容仓库提供，本服务只读。

type AnswerType string

const (
	AnswerExact           AnswerType = "exact"
	AnswerCaseInsensitive AnswerType = "case_insensitive"
	AnswerBlanks          AnswerType = "blanks"
)

type AnswerSpec struct {
	Type   AnswerType `json:"type"`
	Value  string     `json:"value,omitempty"`
	Blanks []string   `json:"blanks,omitempty"`
}

type Question struct {
	ID     string     `json:"id"`
	Prompt string     `json:"prompt,omitempty"`
	Points int        `json:"points"`
	Answer AnswerSpec `json:"answer"`
}

// Quiz 同时用于课时测验、章节测验和期末考试
type Quiz struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title,omitempty"`
	PassingScore int        `json:"passingScore"` // 0-100，0 表示使用默认值
	Duration     int        `json:"duration"`     // 分钟
	Questions    []Question `json:"questions"`
}

type Exercise struct {
	ID        string `json:"id"`
	MaxPoints int    `json:"maxPoints"`
}

type Part struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	Exercise *Exercise `json:"exercise,omitempty"`
}

type Lesson struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Parts []Part `json:"parts"`
	Quiz  *Quiz  `json:"quiz,omitempty"`
}

// Exercises 按出现顺序返回课时内的练习
func (l *Lesson) Exercises() []Exercise {
	var out []Exercise
	for _, p := range l.Parts {
		if p.Exercise != nil {
			out = append(out, *p.Exercise)
		}
	}
	return out
}

func (l *Lesson) FindExercise(id string) (Exercise, bool) {
	for _, e := range l.Exercises() {
		if e.ID == id {
			return e, true
		}
	}
	return Exercise{}, false
}

type Chapter struct {
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
	Quiz    *Quiz    `json:"quiz,omitempty"`
}

type Course struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Chapters  []Chapter `json:"chapters"`
	FinalExam *Quiz     `json:"finalExam,omitempty"`
}

func (c *Course) TotalLessons() int {
	n := 0
	for _, ch := range c.Chapters {
		n += len(ch.Lessons)
	}
	return n
}

// NextLesson 返回 (chapterIdx, lessonIdx) 之后的下一个课时：
// 同章下一课，否则下一个非空章节的第一课。
func (c *Course) NextLesson(chapterIdx, lessonIdx int) (int, int, bool) {
	if chapterIdx >= 0 && chapterIdx < len(c.Chapters) && lessonIdx+1 < len(c.Chapters[chapterIdx].Lessons) {
		return chapterIdx, lessonIdx + 1, true
	}
	for ci := chapterIdx + 1; ci < len(c.Chapters); ci++ {
		if len(c.Chapters[ci].Lessons) > 0 {
			return ci, 0, true
		}
	}
	return 0, 0, false
}
