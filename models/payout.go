// models/payout.go - Reward payout outbox
package models

import "time"

// Payout status constants
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// Payout sources
const (
	PayoutSourceAchievement = "achievement"
	PayoutSourceQuest       = "quest"
)

// RewardPayout is written in the same transaction as the grant it pays for
// and is settled by the payout handler.
type RewardPayout struct {
	ID            string       `json:"id" gorm:"primaryKey;size:36"`
	UserID        string       `json:"user_id" gorm:"not null;size:128;uniqueIndex:idx_payout_source,priority:1"`
	Source        string       `json:"source" gorm:"not null;size:32;uniqueIndex:idx_payout_source,priority:2"`
	SourceRef     string       `json:"source_ref" gorm:"not null;size:64;uniqueIndex:idx_payout_source,priority:3"`
	Description   string       `json:"description" gorm:"size:255"`
	Coins         int64        `json:"coins" gorm:"not null;default:0"`
	XP            int64        `json:"xp" gorm:"not null;default:0"`
	Status        PayoutStatus `json:"status" gorm:"not null;size:16;index:idx_payout_due,priority:1"`
	Attempts      int          `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt time.Time    `json:"next_attempt_at" gorm:"not null;index:idx_payout_due,priority:2"`
	LastError     string       `json:"last_error" gorm:"type:text"`
	CreatedAt     time.Time    `json:"created_at"`
	PaidAt        *time.Time   `json:"paid_at"`
}

func (RewardPayout) TableName() string {
	return "reward_payouts"
}
