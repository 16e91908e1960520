// services/stats.go - Stat counter storage shared by the engines
package services

import (
	"context"
	"time"

	"zentro/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Known stat keys.
const (
	StatBattleWins              = "battle_wins"
	StatBattlesCompleted        = "battles_completed"
	StatBattlesWon              = "battles_won"
	StatWinStreak               = "win_streak"
	StatLongestWinStreak        = "longest_win_streak"
	StatSquadsCreated           = "squads_created"
	StatSquadJoined             = "squad_joined"
	StatSquadBattles            = "squad_battles_participated"
	StatChallengesCompletedWeek = "challenges_completed_this_week"
	StatTotalCoinsEarned        = "total_coins_earned"
	StatBiggestBetWin           = "biggest_bet_win"
	StatDailyStreak             = "daily_streak"
	StatLevelReached            = "level_reached"
	StatQuestsCompleted         = "quests_completed"
	StatMessagesToCompanion     = "messages_to_companion"
)

// ClientStats lists the stat keys clients may report.
func ClientStats() []string {
	return []string{
		StatBattleWins, StatBattlesCompleted, StatBattlesWon, StatWinStreak,
		StatSquadsCreated, StatSquadJoined, StatSquadBattles, StatChallengesCompletedWeek,
	}
}

// ServerStats lists the stat keys only the services write: coin and streak
// counters follow the wallet, the rest follow the ledger, the quest engine,
// the companion or another counter.
func ServerStats() []string {
	return []string{
		StatLongestWinStreak, StatTotalCoinsEarned, StatBiggestBetWin, StatDailyStreak,
		StatLevelReached, StatQuestsCompleted, StatMessagesToCompanion,
	}
}

// KnownStats lists every stat key the services and clients report.
func KnownStats() []string {
	return append(ClientStats(), ServerStats()...)
}

// IsServerStat reports whether statKey is owned by a service.
func IsServerStat(statKey string) bool {
	for _, k := range ServerStats() {
		if k == statKey {
			return true
		}
	}
	return false
}

// StatMode says how a delta is applied to a counter.
type StatMode int

const (
	// StatAccumulate adds the delta, never dropping below zero.
	StatAccumulate StatMode = iota
	// StatAbsolute replaces the value with the delta.
	StatAbsolute
	// StatMax keeps the larger of the current value and the delta.
	StatMax
)

var statModes = map[string]StatMode{
	StatWinStreak:        StatAbsolute,
	StatDailyStreak:      StatAbsolute,
	StatLongestWinStreak: StatMax,
	StatBiggestBetWin:    StatMax,
	StatLevelReached:     StatMax,
}

// statFollowers are max-counters that track an absolute counter.
var statFollowers = map[string]string{
	StatWinStreak: StatLongestWinStreak,
}

// ModeFor returns the mode of a stat key. Unknown keys accumulate.
func ModeFor(statKey string) StatMode {
	if mode, ok := statModes[statKey]; ok {
		return mode
	}
	return StatAccumulate
}

// StatSink receives stat deltas produced as a side effect of other
// operations (coins earned, levels reached, messages sent).
type StatSink interface {
	RecordStat(ctx context.Context, userID, statKey string, delta int64)
}

// recordStat applies delta to statKey, and to its follower if any, inside tx.
// It returns the new values keyed by stat.
func recordStat(tx *gorm.DB, userID, scope, statKey string, delta int64, now time.Time) (map[string]int64, error) {
	changed := make(map[string]int64, 2)

	v, err := applyStat(tx, userID, scope, statKey, ModeFor(statKey), delta, now)
	if err != nil {
		return nil, err
	}
	changed[statKey] = v

	if follower, ok := statFollowers[statKey]; ok {
		fv, err := applyStat(tx, userID, scope, follower, StatMax, v, now)
		if err != nil {
			return nil, err
		}
		changed[follower] = fv
	}
	return changed, nil
}

func applyStat(tx *gorm.DB, userID, scope, statKey string, mode StatMode, delta int64, now time.Time) (int64, error) {
	seed := &models.UserStat{UserID: userID, Scope: scope, StatKey: statKey, Value: 0, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return 0, err
	}

	var expr clause.Expr
	switch mode {
	case StatAbsolute:
		if delta < 0 {
			delta = 0
		}
		expr = gorm.Expr("?", delta)
	case StatMax:
		expr = gorm.Expr("CASE WHEN value < ? THEN ? ELSE value END", delta, delta)
	default:
		expr = gorm.Expr("CASE WHEN value + ? < 0 THEN 0 ELSE value + ? END", delta, delta)
	}

	if err := tx.Model(&models.UserStat{}).
		Where("user_id = ? AND scope = ? AND stat_key = ?", userID, scope, statKey).
		Updates(map[string]interface{}{"value": expr, "updated_at": now}).Error; err != nil {
		return 0, err
	}

	var value int64
	if err := tx.Model(&models.UserStat{}).
		Where("user_id = ? AND scope = ? AND stat_key = ?", userID, scope, statKey).
		Select("value").Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}

// loadStats reads the whole stat bag of a user in one scope.
func loadStats(tx *gorm.DB, userID, scope string) (map[string]int64, error) {
	var rows []models.UserStat
	if err := tx.Where("user_id = ? AND scope = ?", userID, scope).Find(&rows).Error; err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.StatKey] = r.Value
	}
	return stats, nil
}
