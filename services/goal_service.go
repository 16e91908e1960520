// services/goal_service.go - Personal goals and goal activity streaks
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zentro/models"
	"zentro/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxGoalTitleLength = 200

// GoalInput is a create or update request. Nil fields keep their value; an
// empty ID creates a new goal.
type GoalInput struct {
	ID          string             `json:"id"`
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *models.GoalStatus `json:"status"`
	Progress    *int               `json:"progress"`
	DueDate     *time.Time         `json:"due_date"`
}

// GoalStats summarises a user's goals.
type GoalStats struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Completed       int     `json:"completed"`
	OnHold          int     `json:"on_hold"`
	AverageProgress float64 `json:"average_progress"`
	ActiveDays      int     `json:"active_days"`
	CurrentStreak   int     `json:"current_streak"`
	LongestStreak   int     `json:"longest_streak"`
}

type GoalService struct {
	db  *gorm.DB
	cal calendar
	log zerolog.Logger
}

func NewGoalService(db *gorm.DB, log zerolog.Logger) *GoalService {
	return &GoalService{
		db:  db,
		cal: newCalendar(),
		log: log.With().Str("component", "goals").Logger(),
	}
}

// SetClock replaces the clock and the location of calendar days.
func (s *GoalService) SetClock(c Clock, loc *time.Location) {
	s.cal.now = c
	if loc != nil {
		s.cal.loc = loc
	}
}

func validGoalStatus(st models.GoalStatus) bool {
	switch st {
	case models.GoalStatusActive, models.GoalStatusCompleted, models.GoalStatusOnHold:
		return true
	}
	return false
}

// coerceGoal keeps status and progress consistent after an update. An
// explicit status wins over an explicit progress.
func coerceGoal(g *models.Goal, statusSet bool) {
	if g.Progress < 0 {
		g.Progress = 0
	}
	switch {
	case g.Status == models.GoalStatusCompleted && statusSet:
		g.Progress = 100
	case g.Progress >= 100 && statusSet:
		// a goal explicitly kept open cannot sit at 100
		g.Progress = 99
	case g.Progress >= 100:
		g.Progress = 100
		g.Status = models.GoalStatusCompleted
	case g.Status == models.GoalStatusCompleted:
		g.Status = models.GoalStatusActive
	}
}

// SaveGoal creates or updates a goal and logs goal activity for today when
// the goal got completed or its progress went up.
func (s *GoalService) SaveGoal(ctx context.Context, userID string, in GoalInput) (*models.Goal, error) {
	if userID == "" {
		return nil, fmt.Errorf("save goal: %w: user id is required", ErrInvalidInput)
	}
	if in.Status != nil && !validGoalStatus(*in.Status) {
		return nil, fmt.Errorf("save goal: %w: unknown status %q", ErrInvalidInput, *in.Status)
	}
	if in.Progress != nil && *in.Progress < 0 {
		return nil, fmt.Errorf("save goal: %w: progress must be between 0 and 100", ErrInvalidInput)
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" || len(title) > maxGoalTitleLength {
			return nil, fmt.Errorf("save goal: %w: title must be 1-%d characters", ErrInvalidInput, maxGoalTitleLength)
		}
		in.Title = &title
	}

	var goal models.Goal
	logged := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.cal.now()
		prevProgress := 0
		if in.ID == "" {
			if in.Title == nil {
				return fmt.Errorf("%w: title is required", ErrInvalidInput)
			}
			goal = models.Goal{
				ID:        uuid.NewString(),
				UserID:    userID,
				Status:    models.GoalStatusActive,
				CreatedAt: now,
			}
		} else {
			if err := tx.Where("id = ? AND user_id = ?", in.ID, userID).First(&goal).Error; err != nil {
				return err
			}
			prevProgress = goal.Progress
		}

		if in.Title != nil {
			goal.Title = *in.Title
		}
		if in.Description != nil {
			goal.Description = *in.Description
		}
		if in.DueDate != nil {
			due := *in.DueDate
			goal.DueDate = &due
		}
		if in.Status != nil {
			goal.Status = *in.Status
		}
		if in.Progress != nil {
			goal.Progress = *in.Progress
		}
		coerceGoal(&goal, in.Status != nil)
		goal.UpdatedAt = now

		if err := tx.Save(&goal).Error; err != nil {
			return err
		}

		if goal.Status == models.GoalStatusCompleted || goal.Progress > prevProgress {
			day := &models.GoalActivity{UserID: userID, Day: utils.DayKey(now, s.cal.loc)}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(day).Error; err != nil {
				return err
			}
			logged = true
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("save goal", err)
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("goal_id", goal.ID).
		Str("status", string(goal.Status)).
		Int("progress", goal.Progress).
		Bool("activity", logged).
		Msg("goal saved")
	return &goal, nil
}

// DeleteGoal removes a goal. The activity log is kept.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", goalID, userID).Delete(&models.Goal{})
	if res.Error != nil {
		return storeErr("delete goal", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete goal %q: %w", goalID, ErrNotFound)
	}
	return nil
}

// GetGoal returns one goal of the user.
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		return nil, storeErr("get goal", err)
	}
	return &goal, nil
}

// GetAllGoals returns the user's goals, newest first.
func (s *GoalService) GetAllGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	goals := []models.Goal{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Find(&goals).Error; err != nil {
		return nil, storeErr("list goals", err)
	}
	return goals, nil
}

// ActivityDays returns the logged days in ascending order.
func (s *GoalService) ActivityDays(ctx context.Context, userID string) ([]string, error) {
	var days []string
	if err := s.db.WithContext(ctx).Model(&models.GoalActivity{}).
		Where("user_id = ?", userID).
		Order("day ASC").
		Pluck("day", &days).Error; err != nil {
		return nil, storeErr("goal activity", err)
	}
	return days, nil
}

// CurrentStreak counts consecutive active days ending today or yesterday.
func (s *GoalService) CurrentStreak(ctx context.Context, userID string) (int, error) {
	days, err := s.ActivityDays(ctx, userID)
	if err != nil {
		return 0, err
	}
	return CountCurrentStreak(days, s.cal.today()), nil
}

// LongestStreak is the longest run of consecutive active days.
func (s *GoalService) LongestStreak(ctx context.Context, userID string) (int, error) {
	days, err := s.ActivityDays(ctx, userID)
	if err != nil {
		return 0, err
	}
	return CountLongestStreak(days), nil
}

// Stats summarises goals and streaks.
func (s *GoalService) Stats(ctx context.Context, userID string) (*GoalStats, error) {
	goals, err := s.GetAllGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	days, err := s.ActivityDays(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &GoalStats{
		Total:         len(goals),
		ActiveDays:    len(days),
		CurrentStreak: CountCurrentStreak(days, s.cal.today()),
		LongestStreak: CountLongestStreak(days),
	}
	total := 0
	for _, g := range goals {
		total += g.Progress
		switch g.Status {
		case models.GoalStatusActive:
			stats.Active++
		case models.GoalStatusCompleted:
			stats.Completed++
		case models.GoalStatusOnHold:
			stats.OnHold++
		}
	}
	if len(goals) > 0 {
		stats.AverageProgress = float64(total) / float64(len(goals))
	}
	return stats, nil
}

// CountCurrentStreak counts the consecutive days of days ending today, or
// yesterday when today is missing. Zero when neither is present.
func CountCurrentStreak(days []string, today string) int {
	set := make(map[string]bool, len(days))
	for _, d := range utils.SortedUniqueDays(days) {
		set[d] = true
	}

	cursor := today
	if !set[cursor] {
		yesterday, err := utils.ShiftDay(today, -1)
		if err != nil || !set[yesterday] {
			return 0
		}
		cursor = yesterday
	}

	streak := 0
	for set[cursor] {
		streak++
		prev, err := utils.ShiftDay(cursor, -1)
		if err != nil {
			break
		}
		cursor = prev
	}
	return streak
}

// CountLongestStreak returns the longest run of consecutive days.
func CountLongestStreak(days []string) int {
	sorted := utils.SortedUniqueDays(days)
	if len(sorted) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if utils.IsNextDay(sorted[i-1], sorted[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
