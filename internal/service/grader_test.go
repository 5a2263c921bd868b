package service

import (
	"edu_progress_backend/internal/model"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradedQuiz() *model.Quiz {
	return &model.Quiz{
		Questions: []model.Question{
			{ID: "exact", Points: 2, Answer: model.AnswerSpec{Type: model.AnswerExact, Value: "Go"}},
			{ID: "ci", Points: 1, Answer: model.AnswerSpec{Type: model.AnswerCaseInsensitive, Value: "Goroutine"}},
			{ID: "blanks", Points: 1, Answer: model.AnswerSpec{Type: model.AnswerBlanks, Blanks: []string{"make", "chan"}}},
		},
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]Answer
		want    float64
	}{
		{"all correct", map[string]Answer{
			"exact":  {Value: " Go "},
			"ci":     {Value: "GOROUTINE"},
			"blanks": {Blanks: []string{"Make", "chan"}},
		}, 100},
		{"exact is case sensitive", map[string]Answer{
			"exact":  {Value: "go"},
			"ci":     {Value: "goroutine"},
			"blanks": {Blanks: []string{"make", "chan"}},
		}, 50},
		{"blank order matters", map[string]Answer{
			"exact":  {Value: "Go"},
			"blanks": {Blanks: []string{"chan", "make"}},
		}, 50},
		{"blank count must match", map[string]Answer{
			"blanks": {Blanks: []string{"make"}},
		}, 0},
		{"no answers", map[string]Answer{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Grade(gradedQuiz(), tt.answers).Score, 0.001)
		})
	}
}

func TestGradeZeroPointQuiz(t *testing.T) {
	res := Grade(&model.Quiz{}, map[string]Answer{"x": {Value: "y"}})
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, 0, res.TotalPoints)
}

func TestAnswerUnmarshal(t *testing.T) {
	var answers map[string]Answer
	require.NoError(t, json.Unmarshal([]byte(`{"a":"text","b":["x","y"]}`), &answers))
	assert.Equal(t, "text", answers["a"].Value)
	assert.Equal(t, []string{"x", "y"}, answers["b"].Blanks)

	assert.Error(t, json.Unmarshal([]byte(`{"a":42}`), &answers))
}

func TestPassingScore(t *testing.T) {
	assert.Equal(t, 70, PassingScore(nil, 70))
	assert.Equal(t, 70, PassingScore(&model.Quiz{}, 70))
	assert.Equal(t, 80, PassingScore(&model.Quiz{PassingScore: 80}, 70))
}
