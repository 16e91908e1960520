// services/progression_service.go - XP ledger and level computation
package services

import (
	"context"
	"fmt"

	"zentro/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// levelThresholds[i] is the XP needed for level i+1.
var levelThresholds = []int64{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// xpPerLevelAfterTable is the XP per level past the last threshold.
const xpPerLevelAfterTable = 1000

// LevelForXP returns the level for a cumulative XP total.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	last := levelThresholds[len(levelThresholds)-1]
	if xp >= last {
		return len(levelThresholds) + int((xp-last)/xpPerLevelAfterTable)
	}
	level := 1
	for i, t := range levelThresholds {
		if xp >= t {
			level = i + 1
		}
	}
	return level
}

// LevelBounds returns the XP at which level starts and the XP at which the
// next level starts.
func LevelBounds(level int) (floor, next int64) {
	if level < 1 {
		level = 1
	}
	n := len(levelThresholds)
	if level < n {
		return levelThresholds[level-1], levelThresholds[level]
	}
	floor = levelThresholds[n-1] + int64(level-n)*xpPerLevelAfterTable
	return floor, floor + xpPerLevelAfterTable
}

// XPAward is the result of AwardXP.
type XPAward struct {
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	NewXP     int64  `json:"new_xp"`
	NewLevel  int    `json:"new_level"`
	OldLevel  int    `json:"old_level"`
	LeveledUp bool   `json:"leveled_up"`
}

// ProgressionView is a user's level with progress toward the next one.
type ProgressionView struct {
	UserID       string  `json:"user_id"`
	XP           int64   `json:"xp"`
	Level        int     `json:"level"`
	LevelFloorXP int64   `json:"level_floor_xp"`
	NextLevelXP  int64   `json:"next_level_xp"`
	XPToNext     int64   `json:"xp_to_next"`
	Percent      float64 `json:"percent"`
}

type ProgressionService struct {
	db   *gorm.DB
	hub  *Hub
	sink StatSink
	now  Clock
	log  zerolog.Logger
}

func NewProgressionService(db *gorm.DB, hub *Hub, log zerolog.Logger) *ProgressionService {
	return &ProgressionService{
		db:  db,
		hub: hub,
		now: SystemClock,
		log: log.With().Str("component", "progression").Logger(),
	}
}

// SetStatSink wires level-ups into the stat engines.
func (s *ProgressionService) SetStatSink(sink StatSink) {
	s.sink = sink
}

// SetClock replaces the clock.
func (s *ProgressionService) SetClock(c Clock) {
	s.now = c
}

// AwardXP adds amount XP to the user. Non-positive amounts change nothing
// and report LeveledUp=false.
func (s *ProgressionService) AwardXP(ctx context.Context, userID string, amount int64, reason string) (*XPAward, error) {
	if userID == "" {
		return nil, fmt.Errorf("award xp: %w: user id is required", ErrInvalidInput)
	}
	if amount <= 0 {
		view, err := s.GetProgression(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &XPAward{UserID: userID, NewXP: view.XP, NewLevel: view.Level, OldLevel: view.Level}, nil
	}

	var award *XPAward
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		award, err = s.awardTx(tx, userID, amount, reason)
		return err
	})
	if err != nil {
		return nil, storeErr("award xp", err)
	}

	s.afterAward(ctx, award)
	return award, nil
}

// awardTx applies an XP award inside an open transaction. The increment
// takes the row lock, so the level read afterwards belongs to this award.
func (s *ProgressionService) awardTx(tx *gorm.DB, userID string, amount int64, reason string) (*XPAward, error) {
	now := s.now()

	seed := &models.Progression{UserID: userID, XP: 0, Level: 1, CreatedAt: now, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Progression{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"xp": gorm.Expr("xp + ?", amount), "updated_at": now}).Error; err != nil {
		return nil, err
	}

	var p models.Progression
	if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}

	newLevel := LevelForXP(p.XP)
	if newLevel != p.Level {
		if err := tx.Model(&models.Progression{}).
			Where("user_id = ?", userID).
			Update("level", newLevel).Error; err != nil {
			return nil, err
		}
	}

	event := &models.XPEvent{
		UserID:     userID,
		Amount:     amount,
		Reason:     reason,
		XPAfter:    p.XP,
		LevelAfter: newLevel,
		CreatedAt:  now,
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, err
	}

	return &XPAward{
		UserID:    userID,
		Amount:    amount,
		NewXP:     p.XP,
		NewLevel:  newLevel,
		OldLevel:  p.Level,
		LeveledUp: newLevel > p.Level,
	}, nil
}

// afterAward runs once the award is committed.
func (s *ProgressionService) afterAward(ctx context.Context, award *XPAward) {
	s.hub.Publish(Event{Type: EventProgressionUpdated, UserID: award.UserID, Data: award})
	if !award.LeveledUp {
		return
	}

	s.log.Info().Str("user_id", award.UserID).Int("level", award.NewLevel).Msg("🎉 level up")
	s.hub.Publish(Event{Type: EventLevelUp, UserID: award.UserID, Data: award})
	if s.sink != nil {
		s.sink.RecordStat(ctx, award.UserID, StatLevelReached, int64(award.NewLevel))
	}
}

// GetProgression returns the user's level view. Users without XP are level 1.
func (s *ProgressionService) GetProgression(ctx context.Context, userID string) (*ProgressionView, error) {
	var p models.Progression
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&p).Error
	if err != nil {
		return nil, storeErr("get progression", err)
	}
	return newProgressionView(userID, p.XP), nil
}

func newProgressionView(userID string, xp int64) *ProgressionView {
	level := LevelForXP(xp)
	floor, next := LevelBounds(level)
	view := &ProgressionView{
		UserID:       userID,
		XP:           xp,
		Level:        level,
		LevelFloorXP: floor,
		NextLevelXP:  next,
		XPToNext:     next - xp,
	}
	if span := next - floor; span > 0 {
		view.Percent = float64(xp-floor) * 100 / float64(span)
	}
	return view
}

// XPHistory returns the most recent XP awards, newest first.
func (s *ProgressionService) XPHistory(ctx context.Context, userID string, limit int) ([]models.XPEvent, error) {
	var events []models.XPEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, storeErr("xp history", err)
	}
	return events, nil
}

// Leaderboard returns the users with the most XP.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]ProgressionView, error) {
	var rows []models.Progression
	err := s.db.WithContext(ctx).
		Order("xp DESC, user_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("xp leaderboard", err)
	}

	board := make([]ProgressionView, 0, len(rows))
	for _, r := range rows {
		board = append(board, *newProgressionView(r.UserID, r.XP))
	}
	return board, nil
}
