// services/payout_service.go - Reward payout outbox and its handler
package services

import (
	"context"
	"time"

	"zentro/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	payoutBaseDelay = time.Second
	payoutMaxDelay  = 5 * time.Minute
	maxErrorLength  = 500
)

// PayoutResult is a settled payout.
type PayoutResult struct {
	PayoutID    string                    `json:"payout_id"`
	Transaction *models.WalletTransaction `json:"transaction,omitempty"`
	XP          *XPAward                  `json:"xp,omitempty"`
}

// PayoutService settles reward payouts. Grants write a pending payout in
// their own transaction; this service credits coins and XP and flips the
// payout to paid in one transaction, so a payout pays exactly once.
type PayoutService struct {
	db     *gorm.DB
	wallet *WalletService
	ledger *ProgressionService
	hub    *Hub
	now    Clock
	log    zerolog.Logger
}

func NewPayoutService(db *gorm.DB, wallet *WalletService, ledger *ProgressionService, hub *Hub, log zerolog.Logger) *PayoutService {
	return &PayoutService{
		db:     db,
		wallet: wallet,
		ledger: ledger,
		hub:    hub,
		now:    SystemClock,
		log:    log.With().Str("component", "payout").Logger(),
	}
}

// SetClock replaces the clock used for retry scheduling.
func (s *PayoutService) SetClock(c Clock) {
	s.now = c
}

// newPayout builds a pending payout due immediately.
func newPayout(userID, source, sourceRef, description string, coins, xp int64, now time.Time) *models.RewardPayout {
	return &models.RewardPayout{
		ID:            uuid.NewString(),
		UserID:        userID,
		Source:        source,
		SourceRef:     sourceRef,
		Description:   description,
		Coins:         coins,
		XP:            xp,
		Status:        models.PayoutStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

// enqueuePayout stores p inside the grant transaction. It reports false when
// a payout for the same source already exists.
func enqueuePayout(tx *gorm.DB, p *models.RewardPayout) (bool, error) {
	if p.Coins <= 0 && p.XP <= 0 {
		return false, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Dispatch settles the given payouts right after the grant committed.
// Failures stay pending for the sweep; the returned map says which paid.
func (s *PayoutService) Dispatch(ctx context.Context, ids []string) map[string]bool {
	paid := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, err := s.Process(ctx, id); err != nil {
			s.log.Error().Err(err).Str("payout_id", id).Msg("❌ reward payout failed, queued for retry")
			continue
		}
		paid[id] = true
	}
	return paid
}

// Process settles one payout. Settling an already paid payout is a no-op.
func (s *PayoutService) Process(ctx context.Context, id string) (*PayoutResult, error) {
	var p models.RewardPayout
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, storeErr("load payout", err)
	}
	if p.Status == models.PayoutStatusPaid {
		return &PayoutResult{PayoutID: p.ID}, nil
	}

	if p.Coins > 0 {
		if err := s.wallet.openWallet(ctx, p.UserID); err != nil {
			return nil, storeErr("process payout", err)
		}
	}

	result := &PayoutResult{PayoutID: p.ID}
	claimed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		res := tx.Model(&models.RewardPayout{}).
			Where("id = ? AND status = ?", p.ID, models.PayoutStatusPending).
			Updates(map[string]interface{}{
				"status":     models.PayoutStatusPaid,
				"paid_at":    now,
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true

		if p.Coins > 0 {
			record, err := s.wallet.creditTx(tx, p.UserID, p.Coins, payoutTxType(p.Source), p.Description,
				map[string]interface{}{"payout_id": p.ID, "source": p.Source, "source_ref": p.SourceRef})
			if err != nil {
				return err
			}
			result.Transaction = record
		}
		if p.XP > 0 {
			award, err := s.ledger.awardTx(tx, p.UserID, p.XP, p.Description)
			if err != nil {
				return err
			}
			result.XP = award
		}
		return nil
	})
	if err != nil {
		payoutsSettled.WithLabelValues("failed").Inc()
		s.markFailed(ctx, p, err)
		return nil, storeErr("process payout", err)
	}
	if !claimed {
		return result, nil
	}

	payoutsSettled.WithLabelValues("paid").Inc()
	s.log.Info().
		Str("payout_id", p.ID).
		Str("user_id", p.UserID).
		Str("source", p.Source).
		Str("source_ref", p.SourceRef).
		Int64("coins", p.Coins).
		Int64("xp", p.XP).
		Msg("✅ reward paid")

	if result.Transaction != nil {
		coinsCredited.WithLabelValues(result.Transaction.Type).Add(float64(p.Coins))
		s.wallet.afterChange(ctx, p.UserID)
		s.wallet.reportEarned(ctx, p.UserID, p.Coins)
	}
	if result.XP != nil {
		s.ledger.afterAward(ctx, result.XP)
	}
	return result, nil
}

// markFailed schedules the next attempt with exponential delay.
func (s *PayoutService) markFailed(ctx context.Context, p models.RewardPayout, cause error) {
	attempts := p.Attempts + 1
	msg := cause.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}

	err := s.db.WithContext(ctx).Model(&models.RewardPayout{}).
		Where("id = ? AND status = ?", p.ID, models.PayoutStatusPending).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      msg,
			"next_attempt_at": s.now().Add(payoutRetryDelay(attempts)),
		}).Error
	if err != nil {
		s.log.Error().Err(err).Str("payout_id", p.ID).Msg("failed to record payout failure")
	}
	s.hub.Publish(Event{Type: EventPayoutFailed, UserID: p.UserID, Data: map[string]interface{}{
		"payout_id": p.ID,
		"source":    p.Source,
		"attempts":  attempts,
	}})
}

// payoutRetryDelay doubles per attempt up to payoutMaxDelay.
func payoutRetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := payoutBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= payoutMaxDelay {
			return payoutMaxDelay
		}
	}
	return d
}

// SweepDue retries pending payouts whose next attempt is due.
func (s *PayoutService) SweepDue(ctx context.Context, limit int) (paid, failed int, err error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.RewardPayout{}).
		Where("status = ? AND next_attempt_at <= ?", models.PayoutStatusPending, s.now()).
		Order("next_attempt_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, 0, storeErr("sweep payouts", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return paid, failed, ctx.Err()
		}
		if _, err := s.Process(ctx, id); err != nil {
			failed++
			continue
		}
		paid++
	}
	if len(ids) > 0 {
		s.log.Info().Int("paid", paid).Int("failed", failed).Msg("payout sweep finished")
	}
	return paid, failed, nil
}

// Pending lists the unpaid payouts of a user.
func (s *PayoutService) Pending(ctx context.Context, userID string) ([]models.RewardPayout, error) {
	var payouts []models.RewardPayout
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.PayoutStatusPending).
		Order("created_at ASC").
		Find(&payouts).Error; err != nil {
		return nil, storeErr("pending payouts", err)
	}
	return payouts, nil
}

func payoutTxType(source string) string {
	if source == models.PayoutSourceQuest {
		return TxQuest
	}
	return TxAchievement
}
