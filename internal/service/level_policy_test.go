package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelPolicies(t *testing.T) {
	tests := []struct {
		policy LevelPolicy
		xp     int
		want   int
	}{
		{LinearLevelPolicy{}, 0, 1},
		{LinearLevelPolicy{}, 999, 1},
		{LinearLevelPolicy{}, 1000, 2},
		{LinearLevelPolicy{}, 4350, 5},
		{SqrtLevelPolicy{}, 0, 1},
		{SqrtLevelPolicy{}, 99, 1},
		{SqrtLevelPolicy{}, 100, 2},
		{SqrtLevelPolicy{}, 1600, 5},
		{SqrtFloorLevelPolicy{}, 0, 0},
		{SqrtFloorLevelPolicy{}, 100, 1},
		{SqrtFloorLevelPolicy{}, 2500, 5},
	}
	for _, tt := range tests {
		t.Run(tt.policy.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Level(tt.xp), "xp %d", tt.xp)
		})
	}
}

func TestNewLevelPolicy(t *testing.T) {
	p, err := NewLevelPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LevelPolicyLinear, p.Name())

	for _, name := range []string{LevelPolicyLinear, LevelPolicySqrt, LevelPolicySqrtFloor} {
		p, err := NewLevelPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err = NewLevelPolicy("exponential")
	assert.Error(t, err)
}
