// models/goal.go - Personal goals
package models

import "time"

// Goal status constants
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusOnHold    GoalStatus = "on_hold"
)

// Goal is a user's personal goal. Completed goals always have progress 100.
type Goal struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	UserID      string     `json:"user_id" gorm:"not null;size:128;index"`
	Title       string     `json:"title" gorm:"not null;size:200"`
	Description string     `json:"description" gorm:"type:text"`
	Status      GoalStatus `json:"status" gorm:"not null;size:16;default:'active'"`
	Progress    int        `json:"progress" gorm:"not null;default:0"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GoalActivity marks a calendar day on which goal activity happened.
type GoalActivity struct {
	UserID string `json:"user_id" gorm:"primaryKey;size:128"`
	Day    string `json:"day" gorm:"primaryKey;size:10"`
}

func (Goal) TableName() string {
	return "goals"
}

func (GoalActivity) TableName() string {
	return "goal_activity"
}
