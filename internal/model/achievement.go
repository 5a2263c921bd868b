package model

import "time"

// UserBadge 一次性成就徽章，(UserID, BadgeID) 唯一
type UserBadge struct {
	BaseModel
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"userId"`
	BadgeID   string    `gorm:"size:64;not null;uniqueIndex:idx_user_badge" json:"badgeId"`
	AwardedAt time.Time `gorm:"not null" json:"awardedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
