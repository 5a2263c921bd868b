package service

import (
	"fmt"
	"math"
)

const (
	LevelPolicyLinear    = "linear"
	LevelPolicySqrt      = "sqrt"
	LevelPolicySqrtFloor = "sqrt_floor"
)

// LevelPolicy 由累计 XP 计算等级
type LevelPolicy interface {
	Name() string
	Level(xp int) int
}

// LinearLevelPolicy level = floor(xp/1000) + 1
type LinearLevelPolicy struct{}

func (LinearLevelPolicy) Name() string { return LevelPolicyLinear }

func (LinearLevelPolicy) Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/1000 + 1
}

// SqrtLevelPolicy level = floor(sqrt(xp/100)) + 1
type SqrtLevelPolicy struct{}

func (SqrtLevelPolicy) Name() string { return LevelPolicySqrt }

func (SqrtLevelPolicy) Level(xp int) int {
	return sqrtLevel(xp) + 1
}

// SqrtFloorLevelPolicy level = floor(sqrt(xp/100))，新用户为 0 级
type SqrtFloorLevelPolicy struct{}

func (SqrtFloorLevelPolicy) Name() string { return LevelPolicySqrtFloor }

func (SqrtFloorLevelPolicy) Level(xp int) int {
	return sqrtLevel(xp)
}

func sqrtLevel(xp int) int {
	if xp <= 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(float64(xp) / 100)))
}

// NewLevelPolicy 按名称选择策略，空名称使用 linear
func NewLevelPolicy(name string) (LevelPolicy, error) {
	switch name {
	case "", LevelPolicyLinear:
		return LinearLevelPolicy{}, nil
	case LevelPolicySqrt:
		return SqrtLevelPolicy{}, nil
	case LevelPolicySqrtFloor:
		return SqrtFloorLevelPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown level policy %q", name)
	}
}
