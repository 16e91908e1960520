// services/wallet_service.go - Virtual currency wallet, daily bonus and bets
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zentro/models"
	"zentro/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Economy constants
const (
	DefaultStartingBalance = 1000
	baseDailyBonus         = 50
	maxStreakBonus         = 500
	// the daily bonus grows by 6/5 per consecutive day
	streakMultiplierNum = 6
	streakMultiplierDen = 5
	winMultiplierNum    = 5
	winMultiplierDen    = 2
)

// Transaction types
const (
	TxWelcomeBonus = "welcome_bonus"
	TxDailyBonus   = "daily_bonus"
	TxBetPlaced    = "bet_placed"
	TxBetWin       = "bet_win"
	TxAchievement  = "achievement_reward"
	TxQuest        = "quest_reward"
	TxPurchase     = "purchase"
	TxAdminGrant   = "admin_grant"
)

// DailyBonusFor returns the daily bonus for a streak:
// floor(min(50 * 1.2^(streak-1), 500)), computed in integers.
func DailyBonusFor(streak int) int64 {
	if streak < 1 {
		streak = 1
	}
	num, den := int64(baseDailyBonus), int64(1)
	for i := 1; i < streak; i++ {
		num *= streakMultiplierNum
		den *= streakMultiplierDen
		if num/den >= maxStreakBonus {
			return maxStreakBonus
		}
	}
	return num / den
}

// BetPayout returns floor(amount * 2.5).
func BetPayout(amount int64) int64 {
	return amount * winMultiplierNum / winMultiplierDen
}

// DailyBonus is the result of a daily claim.
type DailyBonus struct {
	Bonus       int64                     `json:"bonus"`
	Streak      int                       `json:"streak"`
	Transaction *models.WalletTransaction `json:"transaction"`
}

// BetResolution summarises ResolveBet.
type BetResolution struct {
	TargetID string       `json:"target_id"`
	WinnerID string       `json:"winner_id"`
	Won      int          `json:"won"`
	Lost     int          `json:"lost"`
	Paid     int64        `json:"paid"`
	Bets     []models.Bet `json:"bets"`
}

type WalletService struct {
	db              *gorm.DB
	hub             *Hub
	sink            StatSink
	cal             calendar
	startingBalance int64
	log             zerolog.Logger
}

func NewWalletService(db *gorm.DB, hub *Hub, log zerolog.Logger) *WalletService {
	return &WalletService{
		db:              db,
		hub:             hub,
		cal:             newCalendar(),
		startingBalance: DefaultStartingBalance,
		log:             log.With().Str("component", "wallet").Logger(),
	}
}

// SetStatSink wires coin and streak changes into the stat engines.
func (s *WalletService) SetStatSink(sink StatSink) {
	s.sink = sink
}

// SetClock replaces the clock and the timezone of calendar days.
func (s *WalletService) SetClock(c Clock, loc *time.Location) {
	s.cal.now = c
	if loc != nil {
		s.cal.loc = loc
	}
}

// SetStartingBalance changes the balance new wallets open with.
func (s *WalletService) SetStartingBalance(n int64) {
	if n < 0 {
		n = 0
	}
	s.startingBalance = n
}

// ================== WALLET LIFECYCLE ==================

// openWallet creates the wallet in its own transaction and reports the
// welcome credit as coins earned once it is committed.
func (s *WalletService) openWallet(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.ensureWallet(tx, userID)
		return err
	})
	if err != nil {
		return err
	}
	if created {
		s.reportEarned(ctx, userID, s.startingBalance)
	}
	return nil
}

// ensureWallet creates the wallet on first use and reports whether it did.
func (s *WalletService) ensureWallet(tx *gorm.DB, userID string) (bool, error) {
	now := s.cal.now()
	w := &models.Wallet{
		UserID:      userID,
		Balance:     s.startingBalance,
		TotalEarned: s.startingBalance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(w)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if s.startingBalance > 0 {
		if err := tx.Create(s.newTx(userID, s.startingBalance, TxWelcomeBonus, "Welcome to Zentro!", nil)).Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *WalletService) newTx(userID string, amount int64, typ, description string, metadata map[string]interface{}) *models.WalletTransaction {
	now := s.cal.now()
	return &models.WalletTransaction{
		ID:          fmt.Sprintf("%s_%d_%s", typ, now.UnixMilli(), uuid.NewString()[:8]),
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Description: description,
		Metadata:    datatypes.JSONMap(metadata),
		CreatedAt:   now,
	}
}

// GetWallet returns the user's wallet, opening it if needed.
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	if userID == "" {
		return nil, fmt.Errorf("get wallet: %w: user id is required", ErrInvalidInput)
	}
	if err := s.openWallet(ctx, userID); err != nil {
		return nil, storeErr("get wallet", err)
	}
	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, storeErr("get wallet", err)
	}
	return &w, nil
}

// ================== CREDIT / DEBIT ==================

// Credit adds amount coins to the wallet.
func (s *WalletService) Credit(ctx context.Context, userID string, amount int64, typ, description string, metadata map[string]interface{}) (*models.WalletTransaction, error) {
	if err := s.openWallet(ctx, userID); err != nil {
		return nil, storeErr("credit", err)
	}
	var record *models.WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.creditTx(tx, userID, amount, typ, description, metadata)
		return err
	})
	if err != nil {
		return nil, storeErr("credit", err)
	}

	coinsCredited.WithLabelValues(typ).Add(float64(amount))
	s.afterChange(ctx, userID)
	s.reportEarned(ctx, userID, amount)
	return record, nil
}

func (s *WalletService) creditTx(tx *gorm.DB, userID string, amount int64, typ, description string, metadata map[string]interface{}) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if _, err := s.ensureWallet(tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
			"updated_at":   s.cal.now(),
		}).Error; err != nil {
		return nil, err
	}

	record := s.newTx(userID, amount, typ, description, metadata)
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Debit removes amount coins. The balance check and the decrement are one
// conditional update, so concurrent debits cannot overdraw.
func (s *WalletService) Debit(ctx context.Context, userID string, amount int64, typ, description string, metadata map[string]interface{}) (*models.WalletTransaction, error) {
	if err := s.openWallet(ctx, userID); err != nil {
		return nil, storeErr("debit", err)
	}
	var record *models.WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.debitTx(tx, userID, amount, typ, description, metadata)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			debitsRejected.Inc()
		}
		return nil, storeErr("debit", err)
	}

	coinsDebited.WithLabelValues(typ).Add(float64(amount))
	s.afterChange(ctx, userID)
	return record, nil
}

func (s *WalletService) debitTx(tx *gorm.DB, userID string, amount int64, typ, description string, metadata map[string]interface{}) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if _, err := s.ensureWallet(tx, userID); err != nil {
		return nil, err
	}

	res := tx.Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":     gorm.Expr("balance - ?", amount),
			"total_spent": gorm.Expr("total_spent + ?", amount),
			"updated_at":  s.cal.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientBalance
	}

	record := s.newTx(userID, -amount, typ, description, metadata)
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// ================== DAILY BONUS ==================

// ClaimDailyBonus credits the daily bonus once per calendar day.
func (s *WalletService) ClaimDailyBonus(ctx context.Context, userID string) (*DailyBonus, error) {
	if err := s.openWallet(ctx, userID); err != nil {
		return nil, storeErr("claim daily bonus", err)
	}
	var result DailyBonus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ensureWallet(tx, userID); err != nil {
			return err
		}

		var w models.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			return err
		}

		today := s.cal.today()
		if w.LastDailyBonusDate == today {
			return ErrAlreadyClaimedToday
		}

		streak := 1
		if utils.IsNextDay(w.LastDailyBonusDate, today) {
			streak = w.DailyStreak + 1
		}
		bonus := DailyBonusFor(streak)

		// Compare-and-swap on the previous claim date: a concurrent claim
		// for the same day leaves zero rows to update.
		res := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND last_daily_bonus_date = ?", userID, w.LastDailyBonusDate).
			Updates(map[string]interface{}{
				"balance":               gorm.Expr("balance + ?", bonus),
				"total_earned":          gorm.Expr("total_earned + ?", bonus),
				"daily_streak":          streak,
				"last_daily_bonus_date": today,
				"updated_at":            s.cal.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyClaimedToday
		}

		record := s.newTx(userID, bonus, TxDailyBonus,
			fmt.Sprintf("Daily bonus (Day %d streak)", streak),
			map[string]interface{}{"streak": streak})
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		result = DailyBonus{Bonus: bonus, Streak: streak, Transaction: record}
		return nil
	})
	if err != nil {
		return nil, storeErr("claim daily bonus", err)
	}

	dailyBonusesClaimed.Inc()
	coinsCredited.WithLabelValues(TxDailyBonus).Add(float64(result.Bonus))
	s.log.Info().Str("user_id", userID).Int64("bonus", result.Bonus).Int("streak", result.Streak).Msg("💰 daily bonus claimed")

	s.afterChange(ctx, userID)
	s.reportEarned(ctx, userID, result.Bonus)
	if s.sink != nil {
		s.sink.RecordStat(ctx, userID, StatDailyStreak, int64(result.Streak))
	}
	return &result, nil
}

// ================== BETTING ==================

// PlaceBet debits amount and records a pending bet on targetID.
func (s *WalletService) PlaceBet(ctx context.Context, userID, targetID string, amount int64, prediction string) (*models.Bet, error) {
	prediction = strings.ToLower(strings.TrimSpace(prediction))
	if prediction == "" {
		prediction = models.PredictionSelf
	}
	if prediction != models.PredictionSelf && prediction != models.PredictionOpponent {
		return nil, fmt.Errorf("place bet: %w: prediction must be %q or %q", ErrInvalidInput, models.PredictionSelf, models.PredictionOpponent)
	}
	if targetID == "" {
		return nil, fmt.Errorf("place bet: %w: target id is required", ErrInvalidInput)
	}

	bet := &models.Bet{
		ID:         uuid.NewString(),
		UserID:     userID,
		TargetID:   targetID,
		Amount:     amount,
		Prediction: prediction,
		Status:     models.BetStatusPending,
		PlacedAt:   s.cal.now(),
	}

	if err := s.openWallet(ctx, userID); err != nil {
		return nil, storeErr("place bet", err)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.debitTx(tx, userID, amount, TxBetPlaced,
			fmt.Sprintf("Bet on %s: %d coins", targetID, amount),
			map[string]interface{}{"target_id": targetID, "bet_id": bet.ID, "prediction": prediction}); err != nil {
			return err
		}
		if err := tx.Create(bet).Error; err != nil {
			return err
		}
		return tx.Model(&models.Wallet{}).
			Where("user_id = ?", userID).
			Update("total_bets", gorm.Expr("total_bets + 1")).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			debitsRejected.Inc()
		}
		return nil, storeErr("place bet", err)
	}

	betsPlaced.Inc()
	coinsDebited.WithLabelValues(TxBetPlaced).Add(float64(amount))
	s.afterChange(ctx, userID)
	return bet, nil
}

// betWins reports whether a bet is on the winning side.
func betWins(bet models.Bet, winnerID string) bool {
	switch bet.Prediction {
	case models.PredictionSelf:
		return bet.UserID == winnerID
	case models.PredictionOpponent:
		return bet.UserID != winnerID
	}
	return false
}

// ResolveBet settles every pending bet on targetID. Bets already settled are
// not matched, so calling it twice is a no-op.
func (s *WalletService) ResolveBet(ctx context.Context, targetID, winnerID string) (*BetResolution, error) {
	if targetID == "" || winnerID == "" {
		return nil, fmt.Errorf("resolve bet: %w: target and winner are required", ErrInvalidInput)
	}

	var pending []models.Bet
	if err := s.db.WithContext(ctx).
		Where("target_id = ? AND status = ?", targetID, models.BetStatusPending).
		Order("placed_at ASC").
		Find(&pending).Error; err != nil {
		return nil, storeErr("resolve bet", err)
	}

	result := &BetResolution{TargetID: targetID, WinnerID: winnerID, Bets: make([]models.Bet, 0, len(pending))}
	for _, bet := range pending {
		settled, err := s.settleBet(ctx, bet, winnerID)
		if err != nil {
			return result, err
		}
		if settled == nil {
			continue
		}
		result.Bets = append(result.Bets, *settled)
		if settled.Status == models.BetStatusWon {
			result.Won++
			result.Paid += settled.WinAmount
		} else {
			result.Lost++
		}
	}

	s.log.Info().Str("target_id", targetID).Int("won", result.Won).Int("lost", result.Lost).Msg("✅ bets resolved")
	return result, nil
}

// settleBet moves one bet out of pending. It returns nil when another
// resolver got there first.
func (s *WalletService) settleBet(ctx context.Context, bet models.Bet, winnerID string) (*models.Bet, error) {
	won := betWins(bet, winnerID)
	now := s.cal.now()
	status := models.BetStatusLost
	var winAmount int64
	if won {
		status = models.BetStatusWon
		winAmount = BetPayout(bet.Amount)
	}

	settled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Bet{}).
			Where("id = ? AND status = ?", bet.ID, models.BetStatusPending).
			Updates(map[string]interface{}{
				"status":      status,
				"win_amount":  winAmount,
				"resolved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		settled = true

		if !won {
			return tx.Model(&models.Wallet{}).
				Where("user_id = ?", bet.UserID).
				Updates(map[string]interface{}{
					"total_lost": gorm.Expr("total_lost + ?", bet.Amount),
					"bet_streak": 0,
					"updated_at": now,
				}).Error
		}

		if _, err := s.creditTx(tx, bet.UserID, winAmount, TxBetWin,
			fmt.Sprintf("Bet win: %d coins", winAmount),
			map[string]interface{}{"target_id": bet.TargetID, "bet_id": bet.ID}); err != nil {
			return err
		}
		// right-hand sides see the pre-update row
		return tx.Model(&models.Wallet{}).
			Where("user_id = ?", bet.UserID).
			Updates(map[string]interface{}{
				"total_won":          gorm.Expr("total_won + ?", winAmount),
				"bet_streak":         gorm.Expr("bet_streak + 1"),
				"longest_bet_streak": gorm.Expr("CASE WHEN bet_streak + 1 > longest_bet_streak THEN bet_streak + 1 ELSE longest_bet_streak END"),
				"biggest_win":        gorm.Expr("CASE WHEN biggest_win < ? THEN ? ELSE biggest_win END", winAmount, winAmount),
			}).Error
	})
	if err != nil {
		return nil, storeErr("settle bet", err)
	}
	if !settled {
		return nil, nil
	}

	bet.Status = status
	bet.WinAmount = winAmount
	bet.ResolvedAt = &now
	betsResolved.WithLabelValues(string(status)).Inc()

	s.afterChange(ctx, bet.UserID)
	if won {
		coinsCredited.WithLabelValues(TxBetWin).Add(float64(winAmount))
		s.reportEarned(ctx, bet.UserID, winAmount)
		if s.sink != nil {
			s.sink.RecordStat(ctx, bet.UserID, StatBiggestBetWin, winAmount)
		}
	}
	return &bet, nil
}

// BetsForTarget lists every bet placed on targetID.
func (s *WalletService) BetsForTarget(ctx context.Context, targetID string) ([]models.Bet, error) {
	var bets []models.Bet
	if err := s.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("placed_at ASC").
		Find(&bets).Error; err != nil {
		return nil, storeErr("bets for target", err)
	}
	return bets, nil
}

// ================== QUERIES ==================

// Transactions returns the newest ledger entries first.
func (s *WalletService) Transactions(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, storeErr("transactions", err)
	}
	return txs, nil
}

// Leaderboard returns the richest wallets.
func (s *WalletService) Leaderboard(ctx context.Context, limit int) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.WithContext(ctx).
		Order("balance DESC, user_id ASC").
		Limit(limit).
		Find(&wallets).Error; err != nil {
		return nil, storeErr("coin leaderboard", err)
	}
	return wallets, nil
}

// ================== NOTIFICATIONS ==================

// afterChange publishes the committed wallet state.
func (s *WalletService) afterChange(ctx context.Context, userID string) {
	if s.hub == nil {
		return
	}
	var w models.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&w).Error; err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("wallet reload for subscribers failed")
		return
	}
	s.hub.Publish(Event{Type: EventWalletUpdated, UserID: userID, Data: w})
}

func (s *WalletService) reportEarned(ctx context.Context, userID string, amount int64) {
	if s.sink != nil && amount > 0 {
		s.sink.RecordStat(ctx, userID, StatTotalCoinsEarned, amount)
	}
}
