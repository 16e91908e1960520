// models/wallet.go - Virtual currency data models
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Wallet is a user's coin balance with daily bonus and betting state.
type Wallet struct {
	UserID             string    `json:"user_id" gorm:"primaryKey;size:128"`
	Balance            int64     `json:"balance" gorm:"not null;default:0;check:chk_wallets_balance,balance >= 0;index:idx_wallets_balance,sort:desc"`
	TotalEarned        int64     `json:"total_earned" gorm:"not null;default:0"`
	TotalSpent         int64     `json:"total_spent" gorm:"not null;default:0"`
	DailyStreak        int       `json:"daily_streak" gorm:"not null;default:0"`
	LastDailyBonusDate string    `json:"last_daily_bonus_date" gorm:"not null;default:'';size:10"`
	TotalBets          int       `json:"total_bets" gorm:"not null;default:0"`
	TotalWon           int64     `json:"total_won" gorm:"not null;default:0"`
	TotalLost          int64     `json:"total_lost" gorm:"not null;default:0"`
	BiggestWin         int64     `json:"biggest_win" gorm:"not null;default:0"`
	BetStreak          int       `json:"bet_streak" gorm:"not null;default:0"`
	LongestBetStreak   int       `json:"longest_bet_streak" gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WalletTransaction is an append-only ledger entry. Amount is signed.
type WalletTransaction struct {
	ID          string            `json:"id" gorm:"primaryKey;size:64"`
	UserID      string            `json:"user_id" gorm:"not null;size:128;index:idx_wallet_tx_user_created,priority:1"`
	Amount      int64             `json:"amount" gorm:"not null"`
	Type        string            `json:"type" gorm:"not null;size:50;index"`
	Description string            `json:"description" gorm:"size:255"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index:idx_wallet_tx_user_created,priority:2"`
}

// Bet status constants
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
)

// Bet predictions
const (
	PredictionSelf     = "self"
	PredictionOpponent = "opponent"
)

// Bet is a wager on the outcome of a target (battle, match).
type Bet struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	UserID     string     `json:"user_id" gorm:"not null;size:128;index"`
	TargetID   string     `json:"target_id" gorm:"not null;size:128;index:idx_bets_target_status,priority:1"`
	Amount     int64      `json:"amount" gorm:"not null"`
	Prediction string     `json:"prediction" gorm:"not null;size:16"`
	Status     BetStatus  `json:"status" gorm:"not null;size:16;index:idx_bets_target_status,priority:2"`
	WinAmount  int64      `json:"win_amount" gorm:"not null;default:0"`
	PlacedAt   time.Time  `json:"placed_at" gorm:"not null"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

func (Bet) TableName() string {
	return "bets"
}
