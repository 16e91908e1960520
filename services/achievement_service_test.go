package services

import (
	"context"
	"testing"

	"zentro/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unlockedIDs(list []UnlockedAchievement) []string {
	ids := make([]string, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestRecordStatDeltaGrantsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unlocked, err := env.achievements.RecordStatDelta(ctx, "u1", StatBattleWins, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"first_blood"}, unlockedIDs(unlocked))
	assert.True(t, unlocked[0].Paid)
	assert.NotEmpty(t, unlocked[0].PayoutID)

	unlocked, err = env.achievements.RecordStatDelta(ctx, "u1", StatBattleWins, 1)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	rows, err := env.achievements.ListUnlocked(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].StatValue)

	w, err := env.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultStartingBalance+100), w.Balance)

	p, err := env.ledger.GetProgression(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.XP)
}

func TestRecordStatDeltaCrossingSeveralThresholds(t *testing.T) {
	env := newTestEnv(t)

	unlocked, err := env.achievements.RecordStatDelta(context.Background(), "u1", StatBattleWins, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_blood", "battle_veteran"}, unlockedIDs(unlocked))
}

func TestWinStreakIsAbsoluteAndTracksLongest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.achievements.RecordStatDelta(ctx, "u1", StatWinStreak, 4)
	require.NoError(t, err)
	_, err = env.achievements.RecordStatDelta(ctx, "u1", StatWinStreak, 2)
	require.NoError(t, err)

	stats, err := env.achievements.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[StatWinStreak])
	assert.Equal(t, int64(4), stats[StatLongestWinStreak])

	unlocked, err := env.achievements.RecordStatDelta(ctx, "u1", StatWinStreak, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"unstoppable"}, unlockedIDs(unlocked))
}

func TestUnknownStatsAreStoredAndNeverGoNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.achievements.RecordStatDelta(ctx, "u1", "puzzles_solved", 3)
	require.NoError(t, err)
	_, err = env.achievements.RecordStatDelta(ctx, "u1", "puzzles_solved", -10)
	require.NoError(t, err)

	stats, err := env.achievements.Stats(ctx, "u1")
	require.NoError(t, err)
	v, ok := stats["puzzles_solved"]
	assert.True(t, ok)
	assert.Equal(t, int64(0), v)
}

func TestAchievementProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.achievements.RecordStatDelta(ctx, "u1", StatBattleWins, 5)
	require.NoError(t, err)

	progress, err := env.achievements.Progress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, progress, len(AchievementCatalog()))

	byID := make(map[string]AchievementProgress, len(progress))
	for _, p := range progress {
		byID[p.ID] = p
	}
	assert.True(t, byID["first_blood"].Unlocked)
	assert.Equal(t, float64(100), byID["first_blood"].Percent)
	assert.False(t, byID["battle_veteran"].Unlocked)
	assert.Equal(t, float64(50), byID["battle_veteran"].Percent)
	assert.Equal(t, float64(0), byID["squad_founder"].Percent)
}

func TestAchievementStatsAreScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.achievements.RecordStatDelta(ctx, "u1", StatBattlesWon, 3)
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&models.UserStat{}).
		Where("user_id = ? AND scope = ?", "u1", models.StatScopeQuests).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordStatDeltaRejectsMissingKey(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.achievements.RecordStatDelta(context.Background(), "u1", "", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAchievementUnlockIsPublished(t *testing.T) {
	env := newTestEnv(t)
	sub := env.hub.Subscribe("u1")
	defer sub.Close()

	_, err := env.achievements.RecordStatDelta(context.Background(), "u1", StatSquadsCreated, 1)
	require.NoError(t, err)

	var types []string
	for len(sub.C) > 0 {
		evt := <-sub.C
		types = append(types, evt.Type)
	}
	assert.Contains(t, types, EventAchievementUnlocked)
	assert.Contains(t, types, EventWalletUpdated)
	assert.Contains(t, types, EventStatsUpdated)
}

func TestValidateAchievementCatalog(t *testing.T) {
	require.NoError(t, ValidateAchievementCatalog(AchievementCatalog(), ChatMilestoneIDs()))

	broken := []Achievement{
		{ID: "a", StatKey: StatBattleWins, Threshold: 1},
		{ID: "a", StatKey: StatBattleWins, Threshold: 2},
		{ID: "b", StatKey: "", Threshold: 1},
		{ID: "c", StatKey: StatBattleWins, Threshold: 0},
	}
	err := ValidateAchievementCatalog(broken, []string{"ce_chit_chatter_5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate achievement id "a"`)
	assert.Contains(t, err.Error(), `"b" has no stat key`)
	assert.Contains(t, err.Error(), `"c" has non-positive threshold`)
	assert.Contains(t, err.Error(), `"ce_chit_chatter_5" is not defined`)
}
