// services/activity_service.go - Fans user activity out to the progress engines
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ActivityResult is what one activity report changed.
type ActivityResult struct {
	StatKey      string                `json:"stat_key"`
	Delta        int64                 `json:"delta"`
	Achievements []UnlockedAchievement `json:"achievements"`
	Quests       *QuestUpdate          `json:"quests"`
}

// ActivityService forwards stat deltas to the achievement and quest engines.
// Each engine keeps its own counters.
type ActivityService struct {
	achievements *AchievementService
	quests       *QuestService
	log          zerolog.Logger
}

func NewActivityService(achievements *AchievementService, quests *QuestService, log zerolog.Logger) *ActivityService {
	return &ActivityService{
		achievements: achievements,
		quests:       quests,
		log:          log.With().Str("component", "activity").Logger(),
	}
}

// Record reports a stat delta to both engines. Both always run; their
// errors are joined.
func (s *ActivityService) Record(ctx context.Context, userID, statKey string, delta int64) (*ActivityResult, error) {
	if userID == "" || statKey == "" {
		return nil, fmt.Errorf("record activity: %w: user id and stat key are required", ErrInvalidInput)
	}

	result := &ActivityResult{StatKey: statKey, Delta: delta, Achievements: []UnlockedAchievement{}}
	var errs []error
	if s.achievements != nil {
		unlocked, err := s.achievements.RecordStatDelta(ctx, userID, statKey, delta)
		if err != nil {
			errs = append(errs, err)
		} else if unlocked != nil {
			result.Achievements = unlocked
		}
	}
	if s.quests != nil {
		update, err := s.quests.RecordStatDelta(ctx, userID, statKey, delta)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Quests = update
		}
	}
	return result, errors.Join(errs...)
}

// RecordStat implements StatSink. Failures are logged; the operation that
// produced the stat has already committed.
func (s *ActivityService) RecordStat(ctx context.Context, userID, statKey string, delta int64) {
	if _, err := s.Record(ctx, userID, statKey, delta); err != nil {
		s.log.Error().Err(err).
			Str("user_id", userID).
			Str("stat", statKey).
			Int64("delta", delta).
			Msg("failed to record activity stat")
	}
}
