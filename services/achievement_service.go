// services/achievement_service.go - Achievement rule evaluation and grants
package services

import (
	"context"
	"fmt"
	"time"

	"zentro/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnlockedAchievement is an achievement granted by a RecordStatDelta call.
type UnlockedAchievement struct {
	Achievement
	StatValue  int64     `json:"stat_value"`
	UnlockedAt time.Time `json:"unlocked_at"`
	PayoutID   string    `json:"payout_id,omitempty"`
	Paid       bool      `json:"paid"`
}

// AchievementProgress is one catalog entry with the user's progress toward it.
type AchievementProgress struct {
	Achievement
	Current    int64      `json:"current"`
	Percent    float64    `json:"percent"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

type AchievementService struct {
	db      *gorm.DB
	payouts *PayoutService
	hub     *Hub
	catalog []Achievement
	now     Clock
	log     zerolog.Logger
}

func NewAchievementService(db *gorm.DB, payouts *PayoutService, hub *Hub, log zerolog.Logger) *AchievementService {
	return &AchievementService{
		db:      db,
		payouts: payouts,
		hub:     hub,
		catalog: AchievementCatalog(),
		now:     SystemClock,
		log:     log.With().Str("component", "achievements").Logger(),
	}
}

// SetClock replaces the clock.
func (s *AchievementService) SetClock(c Clock) {
	s.now = c
}

// RecordStatDelta applies delta to statKey and grants every achievement the
// new stats satisfy. It returns only achievements granted by this call.
func (s *AchievementService) RecordStatDelta(ctx context.Context, userID, statKey string, delta int64) ([]UnlockedAchievement, error) {
	if userID == "" || statKey == "" {
		return nil, fmt.Errorf("record achievement stat: %w: user id and stat key are required", ErrInvalidInput)
	}

	var unlocked []UnlockedAchievement
	var changed map[string]int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		var err error
		changed, err = recordStat(tx, userID, models.StatScopeAchievements, statKey, delta, now)
		if err != nil {
			return err
		}

		stats, err := loadStats(tx, userID, models.StatScopeAchievements)
		if err != nil {
			return err
		}

		var have []string
		if err := tx.Model(&models.UserAchievement{}).
			Where("user_id = ?", userID).
			Pluck("achievement_id", &have).Error; err != nil {
			return err
		}
		owned := make(map[string]bool, len(have))
		for _, id := range have {
			owned[id] = true
		}

		for _, a := range s.catalog {
			if owned[a.ID] || stats[a.StatKey] < a.Threshold {
				continue
			}

			record := &models.UserAchievement{
				UserID:        userID,
				AchievementID: a.ID,
				StatValue:     stats[a.StatKey],
				UnlockedAt:    now,
			}
			// The unique index decides the race between concurrent grants.
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}

			u := UnlockedAchievement{Achievement: a, StatValue: record.StatValue, UnlockedAt: now}
			payout := newPayout(userID, models.PayoutSourceAchievement, a.ID,
				"Achievement: "+a.Title, a.Reward.Coins, a.Reward.XP, now)
			queued, err := enqueuePayout(tx, payout)
			if err != nil {
				return err
			}
			if queued {
				u.PayoutID = payout.ID
			}
			unlocked = append(unlocked, u)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("record achievement stat", err)
	}

	s.hub.Publish(Event{Type: EventStatsUpdated, UserID: userID, Data: map[string]interface{}{
		"scope": models.StatScopeAchievements,
		"stats": changed,
	}})
	s.settle(ctx, userID, unlocked)
	return unlocked, nil
}

// settle pays out the new grants. A failed payout stays queued and does not
// revoke the grant.
func (s *AchievementService) settle(ctx context.Context, userID string, unlocked []UnlockedAchievement) {
	if len(unlocked) == 0 {
		return
	}

	ids := make([]string, 0, len(unlocked))
	for _, u := range unlocked {
		achievementsUnlocked.WithLabelValues(u.ID).Inc()
		s.log.Info().Str("user_id", userID).Str("achievement", u.ID).Msg("🏆 achievement unlocked")
		if u.PayoutID != "" {
			ids = append(ids, u.PayoutID)
		}
	}

	var paid map[string]bool
	if s.payouts != nil {
		paid = s.payouts.Dispatch(ctx, ids)
	}
	for i := range unlocked {
		unlocked[i].Paid = unlocked[i].PayoutID == "" || paid[unlocked[i].PayoutID]
		s.hub.Publish(Event{Type: EventAchievementUnlocked, UserID: userID, Data: unlocked[i]})
	}
}

// ListUnlocked returns the user's granted achievements, oldest first.
func (s *AchievementService) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr("list achievements", err)
	}
	return rows, nil
}

// Stats returns the user's achievement counters.
func (s *AchievementService) Stats(ctx context.Context, userID string) (map[string]int64, error) {
	stats, err := loadStats(s.db.WithContext(ctx), userID, models.StatScopeAchievements)
	if err != nil {
		return nil, storeErr("achievement stats", err)
	}
	return stats, nil
}

// Progress returns every catalog entry with the user's progress.
func (s *AchievementService) Progress(ctx context.Context, userID string) ([]AchievementProgress, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		unlockedAt[r.AchievementID] = r.UnlockedAt
	}

	out := make([]AchievementProgress, 0, len(s.catalog))
	for _, a := range s.catalog {
		p := AchievementProgress{Achievement: a, Current: stats[a.StatKey]}
		if at, ok := unlockedAt[a.ID]; ok {
			p.Unlocked = true
			p.UnlockedAt = &at
			p.Percent = 100
		} else {
			p.Percent = percentOf(p.Current, a.Threshold)
		}
		out = append(out, p)
	}
	return out, nil
}

// ByCategory filters the catalog.
func (s *AchievementService) ByCategory(category string) []Achievement {
	var out []Achievement
	for _, a := range s.catalog {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// percentOf returns current/target as a percentage capped at 100.
func percentOf(current, target int64) float64 {
	if target <= 0 {
		return 100
	}
	if current <= 0 {
		return 0
	}
	if current >= target {
		return 100
	}
	return float64(current) * 100 / float64(target)
}
