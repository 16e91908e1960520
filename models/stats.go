// models/stats.go - Per-user stat counters
package models

import "time"

// Stat scopes. Each engine owns the counters in its own scope.
const (
	StatScopeAchievements = "achievements"
	StatScopeQuests       = "quests"
)

// UserStat is one named counter in a user's stat bag.
type UserStat struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:128"`
	Scope     string    `json:"scope" gorm:"primaryKey;size:32"`
	StatKey   string    `json:"stat_key" gorm:"primaryKey;size:64"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserStat) TableName() string {
	return "user_stats"
}
