package service

import (
	"edu_progress_backend/internal/model"
	"encoding/json"
	"fmt"
	"strings"
)

// Answer 单题作答：普通题为字符串，填空题为字符串数组
type Answer struct {
	Value  string
	Blanks []string
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Value = s
		return nil
	}
	var blanks []string
	if err := json.Unmarshal(data, &blanks); err == nil {
		a.Blanks = blanks
		return nil
	}
	return fmt.Errorf("answer must be a string or an array of strings")
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Blanks != nil {
		return json.Marshal(a.Blanks)
	}
	return json.Marshal(a.Value)
}

type GradeResult struct {
	Score        float64 `json:"score"`
	EarnedPoints int     `json:"earnedPoints"`
	TotalPoints  int     `json:"totalPoints"`
	Correct      int     `json:"correct"`
	Questions    int     `json:"questions"`
}

// Grade 得分 = 100 * 得分点数 / 总点数，总点数为 0 时得 0 分
func Grade(quiz *model.Quiz, answers map[string]Answer) GradeResult {
	res := GradeResult{Questions: len(quiz.Questions)}
	for _, q := range quiz.Questions {
		res.TotalPoints += q.Points
		ans, ok := answers[q.ID]
		if !ok {
			continue
		}
		if checkAnswer(q.Answer, ans) {
			res.EarnedPoints += q.Points
			res.Correct++
		}
	}
	if res.TotalPoints > 0 {
		res.Score = 100 * float64(res.EarnedPoints) / float64(res.TotalPoints)
	}
	return res
}

func checkAnswer(spec model.AnswerSpec, ans Answer) bool {
	switch spec.Type {
	case model.AnswerCaseInsensitive:
		return strings.EqualFold(strings.TrimSpace(spec.Value), strings.TrimSpace(ans.Value))
	case model.AnswerBlanks:
		if len(spec.Blanks) == 0 || len(spec.Blanks) != len(ans.Blanks) {
			return false
		}
		for i, want := range spec.Blanks {
			if !strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(ans.Blanks[i])) {
				return false
			}
		}
		return true
	default:
		return strings.TrimSpace(spec.Value) == strings.TrimSpace(ans.Value)
	}
}

// PassingScore 测验自带及格线优先，否则使用默认值
func PassingScore(quiz *model.Quiz, fallback int) int {
	if quiz != nil && quiz.PassingScore > 0 && quiz.PassingScore <= 100 {
		return quiz.PassingScore
	}
	return fallback
}
