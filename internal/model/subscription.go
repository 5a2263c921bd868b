package model

import "time"

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "FREE"
	TierPro        SubscriptionTier = "PRO"
	TierEnterprise SubscriptionTier = "ENTERPRISE"
)

func (t SubscriptionTier) IsPaid() bool {
	return t == TierPro || t == TierEnterprise
}

// Subscription 由计费系统写入，本服务只读
type Subscription struct {
	BaseModel
	UserID    uint             `gorm:"uniqueIndex;not null" json:"userId"`
	Tier      SubscriptionTier `gorm:"size:16;not null;default:'FREE'" json:"tier"`
	ExpiresAt *time.Time       `json:"expiresAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
