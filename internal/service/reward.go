package service

import "math"

// 奖励常量
const (
	LessonXP          = 100
	LessonGems        = 5
	LessonQuizBaseXP  = 100
	LessonQuizBonusXP = 50
	ChapterBonusXP    = 250
	CourseBonusXP     = 1000
	CourseBonusGems   = 50
	LevelUpGems       = 25
)

// Reward XP 与宝石增量，只会累加
type Reward struct {
	XP   int `json:"xp"`
	Gems int `json:"gems"`
}

func (r Reward) Add(o Reward) Reward {
	return Reward{XP: r.XP + o.XP, Gems: r.Gems + o.Gems}
}

func LessonReward() Reward {
	return Reward{XP: LessonXP, Gems: LessonGems}
}

// LessonQuizReward 课时测验通过：100 + round(score/100*50)，不发宝石
func LessonQuizReward(score float64) Reward {
	score = clampScore(score)
	return Reward{XP: LessonQuizBaseXP + int(math.Round(score/100*LessonQuizBonusXP))}
}

func ChapterBonus() Reward {
	return Reward{XP: ChapterBonusXP}
}

func CourseBonus() Reward {
	return Reward{XP: CourseBonusXP, Gems: CourseBonusGems}
}

// ChapterQuizReward 每个百分点 1 XP，宝石按测验档位
func ChapterQuizReward(score float64) Reward {
	score = clampScore(score)
	return Reward{XP: int(math.Round(score)), Gems: quizGems(score)}
}

// FinalExamReward 每个百分点 3 XP，宝石按考试档位
func FinalExamReward(score float64) Reward {
	score = clampScore(score)
	return Reward{XP: int(math.Round(score * 3)), Gems: examGems(score)}
}

// quizGems 测验档位：>=90→10，>=80→7，>=70→5
func quizGems(score float64) int {
	switch {
	case score >= 90:
		return 10
	case score >= 80:
		return 7
	case score >= 70:
		return 5
	default:
		return 0
	}
}

// examGems 期末考试档位：>=90→10，>=70→6，>=50→3
func examGems(score float64) int {
	switch {
	case score >= 90:
		return 10
	case score >= 70:
		return 6
	case score >= 50:
		return 3
	default:
		return 0
	}
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
