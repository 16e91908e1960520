// models/quest.go - Quest progress data models
package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestStatus is the state of one quest instance.
type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusExpired   QuestStatus = "expired"
)

// QuestProfile marks that a user's quest system was initialized.
type QuestProfile struct {
	UserID        string    `json:"user_id" gorm:"primaryKey;size:128"`
	InitializedAt time.Time `json:"initialized_at" gorm:"not null"`
}

// UserQuest is one instance of a quest for a user. Repeatable quests get a
// new instance per run; Baseline holds the requirement counters at activation.
type UserQuest struct {
	ID          string                               `json:"id" gorm:"primaryKey;size:36"`
	UserID      string                               `json:"user_id" gorm:"not null;size:128;index"`
	QuestID     string                               `json:"quest_id" gorm:"not null;size:64;index"`
	Status      QuestStatus                          `json:"status" gorm:"not null;size:16;index"`
	Repeatable  bool                                 `json:"repeatable" gorm:"not null;default:false"`
	Baseline    datatypes.JSONType[map[string]int64] `json:"baseline"`
	StartedAt   time.Time                            `json:"started_at" gorm:"not null"`
	ExpiresAt   *time.Time                           `json:"expires_at"`
	CompletedAt *time.Time                           `json:"completed_at"`
	EndedAt     *time.Time                           `json:"ended_at"`
}

// UserTitle is a title earned from a quest.
type UserTitle struct {
	UserID   string    `json:"user_id" gorm:"primaryKey;size:128"`
	Title    string    `json:"title" gorm:"primaryKey;size:100"`
	QuestID  string    `json:"quest_id" gorm:"size:64"`
	EarnedAt time.Time `json:"earned_at" gorm:"not null"`
}

// UserUnlock is a special unlock granted by a quest.
type UserUnlock struct {
	UserID     string    `json:"user_id" gorm:"primaryKey;size:128"`
	Unlock     string    `json:"unlock" gorm:"primaryKey;size:100"`
	QuestID    string    `json:"quest_id" gorm:"size:64"`
	UnlockedAt time.Time `json:"unlocked_at" gorm:"not null"`
}

func (QuestProfile) TableName() string {
	return "quest_profiles"
}

func (UserQuest) TableName() string {
	return "user_quests"
}

func (UserTitle) TableName() string {
	return "user_titles"
}

func (UserUnlock) TableName() string {
	return "user_unlocks"
}
