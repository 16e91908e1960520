// models/progression.go - XP and level records
package models

import "time"

// Progression holds a user's cumulative XP. Level is always derived from XP
// when XP changes and is stored only for ordering and level-up detection.
type Progression struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:128"`
	XP        int64     `json:"xp" gorm:"not null;default:0;index:idx_progressions_xp,sort:desc"`
	Level     int       `json:"level" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// XPEvent is the append-only log of XP awards.
type XPEvent struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"not null;size:128;index"`
	Amount     int64     `json:"amount" gorm:"not null"`
	Reason     string    `json:"reason" gorm:"size:200"`
	XPAfter    int64     `json:"xp_after" gorm:"not null"`
	LevelAfter int       `json:"level_after" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (Progression) TableName() string {
	return "progressions"
}

func (XPEvent) TableName() string {
	return "xp_events"
}
