package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLessonRewards(t *testing.T) {
	assert.Equal(t, Reward{XP: 100, Gems: 5}, LessonReward())
	assert.Equal(t, Reward{XP: 250}, ChapterBonus())
	assert.Equal(t, Reward{XP: 1000, Gems: 50}, CourseBonus())
}

func TestLessonQuizReward(t *testing.T) {
	tests := []struct {
		score float64
		want  Reward
	}{
		{0, Reward{XP: 100}},
		{70, Reward{XP: 135}},
		{80, Reward{XP: 140}},
		{90, Reward{XP: 145}},
		{100, Reward{XP: 150}},
		{150, Reward{XP: 150}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LessonQuizReward(tt.score), "score %v", tt.score)
	}
}

func TestChapterQuizRewardBrackets(t *testing.T) {
	tests := []struct {
		score float64
		want  Reward
	}{
		{95, Reward{XP: 95, Gems: 10}},
		{90, Reward{XP: 90, Gems: 10}},
		{85, Reward{XP: 85, Gems: 7}},
		{80, Reward{XP: 80, Gems: 7}},
		{72.4, Reward{XP: 72, Gems: 5}},
		{69.9, Reward{XP: 70, Gems: 0}},
		{50, Reward{XP: 50, Gems: 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChapterQuizReward(tt.score), "score %v", tt.score)
	}
}

func TestFinalExamRewardBrackets(t *testing.T) {
	tests := []struct {
		score float64
		want  Reward
	}{
		{100, Reward{XP: 300, Gems: 10}},
		{90, Reward{XP: 270, Gems: 10}},
		{85, Reward{XP: 255, Gems: 6}},
		{70, Reward{XP: 210, Gems: 6}},
		{60, Reward{XP: 180, Gems: 3}},
		{50, Reward{XP: 150, Gems: 3}},
		{49, Reward{XP: 147, Gems: 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FinalExamReward(tt.score), "score %v", tt.score)
	}
}

func TestQuizAndExamBracketsDiffer(t *testing.T) {
	assert.Equal(t, 7, ChapterQuizReward(80).Gems)
	assert.Equal(t, 6, FinalExamReward(80).Gems)
	assert.Equal(t, 0, ChapterQuizReward(60).Gems)
	assert.Equal(t, 3, FinalExamReward(60).Gems)
}

func TestRewardAdd(t *testing.T) {
	r := LessonReward().Add(ChapterBonus()).Add(CourseBonus())
	assert.Equal(t, Reward{XP: 1350, Gems: 55}, r)
}
