package service

import (
	"edu_progress_backend/internal/config"
	"sync"
	"time"
)

const DefaultPassingScore = 70

// Policy 一次请求内使用的策略快照
type Policy struct {
	Level                       LevelPolicy
	FreeDailyQuizzes            int
	PaidDailyQuizzes            int
	ConsumeQuotaOnFailedAttempt bool
	PassingScore                int
	Location                    *time.Location
}

func PolicyFromConfig(cfg config.ProgressConfig) (Policy, error) {
	lp, err := NewLevelPolicy(cfg.LevelPolicy)
	if err != nil {
		return Policy{}, err
	}
	p := Policy{
		Level:                       lp,
		FreeDailyQuizzes:            cfg.FreeDailyQuizzes,
		PaidDailyQuizzes:            cfg.PaidDailyQuizzes,
		ConsumeQuotaOnFailedAttempt: cfg.ConsumeQuotaOnFailedAttempt,
		PassingScore:                cfg.PassingScore,
		Location:                    cfg.Location(),
	}
	return p.withDefaults(), nil
}

// DefaultPolicy linear 等级，免费 1 次、付费 5 次，失败不计次
func DefaultPolicy() Policy {
	return Policy{Level: LinearLevelPolicy{}}.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.Level == nil {
		p.Level = LinearLevelPolicy{}
	}
	if p.FreeDailyQuizzes <= 0 {
		p.FreeDailyQuizzes = 1
	}
	if p.PaidDailyQuizzes <= 0 {
		p.PaidDailyQuizzes = 5
	}
	if p.PassingScore <= 0 || p.PassingScore > 100 {
		p.PassingScore = DefaultPassingScore
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	return p
}

// PolicyStore 配置热更新时整体替换策略
type PolicyStore struct {
	mu     sync.RWMutex
	policy Policy
}

func NewPolicyStore(p Policy) *PolicyStore {
	return &PolicyStore{policy: p.withDefaults()}
}

func (s *PolicyStore) Get() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

func (s *PolicyStore) Set(p Policy) {
	s.mu.Lock()
	s.policy = p.withDefaults()
	s.mu.Unlock()
}
