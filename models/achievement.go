// models/achievement.go
package models

import "time"

// UserAchievement records a granted achievement. The unique index makes
// granting idempotent.
type UserAchievement struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"user_id" gorm:"not null;size:128;uniqueIndex:idx_user_achievement"`
	AchievementID string    `json:"achievement_id" gorm:"not null;size:64;uniqueIndex:idx_user_achievement"`
	StatValue     int64     `json:"stat_value" gorm:"not null"`
	UnlockedAt    time.Time `json:"unlocked_at" gorm:"not null"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
