package services

import (
	"context"
	"testing"
	"time"

	"zentro/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedIDs(update *QuestUpdate) []string {
	ids := make([]string, 0, len(update.Completed))
	for _, c := range update.Completed {
		ids = append(ids, c.ID)
	}
	return ids
}

func activeQuestIDs(t *testing.T, env *testEnv, userID string) []string {
	t.Helper()
	progress, err := env.quests.Progress(context.Background(), userID)
	require.NoError(t, err)
	ids := make([]string, 0, len(progress.Active))
	for _, a := range progress.Active {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestInitializeActivatesStartingQuests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	update, err := env.quests.Initialize(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first_steps", "squad_alliance", "weekly_challenge"}, update.Activated)

	update, err = env.quests.Initialize(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, update.Activated)

	assert.ElementsMatch(t, []string{"first_steps", "squad_alliance", "weekly_challenge"}, activeQuestIDs(t, env, "u1"))
}

func TestPrerequisitesGateActivation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	update, err := env.quests.RecordStatDelta(ctx, "u1", StatBattlesWon, 10)
	require.NoError(t, err)
	assert.Empty(t, update.Completed)

	update, err = env.quests.RecordStatDelta(ctx, "u1", StatBattlesCompleted, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_steps", "battle_mastery"}, completedIDs(update))
	assert.ElementsMatch(t, []string{"battle_mastery", "coin_empire"}, update.Activated)
	for _, c := range update.Completed {
		assert.True(t, c.Paid, c.ID)
	}

	active := activeQuestIDs(t, env, "u1")
	assert.Contains(t, active, "coin_empire")
	assert.NotContains(t, active, "legendary_status")
	assert.NotContains(t, active, "battle_mastery")

	titles, err := env.quests.Titles(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Zentro Initiate", "Battle Master"}, titles)

	unlocks, err := env.quests.Unlocks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"unlock_advanced_battles"}, unlocks)

	chapter, err := env.quests.Chapter(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, chapter)

	w, err := env.wallet.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultStartingBalance+500+2000), w.Balance)

	stats, err := env.achievements.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[StatQuestsCompleted])
}

func TestCompletedQuestIsNotCompletedAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	update, err := env.quests.RecordStatDelta(ctx, "u1", StatSquadJoined, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"squad_alliance"}, completedIDs(update))

	update, err = env.quests.RecordStatDelta(ctx, "u1", StatSquadJoined, 1)
	require.NoError(t, err)
	assert.Empty(t, update.Completed)

	var payouts int64
	require.NoError(t, env.db.Model(&models.RewardPayout{}).
		Where("user_id = ? AND source = ?", "u1", models.PayoutSourceQuest).
		Count(&payouts).Error)
	assert.Equal(t, int64(1), payouts)
}

func TestRepeatableQuestExpiresAndReenters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.RecordStatDelta(ctx, "u1", StatChallengesCompletedWeek, 3)
	require.NoError(t, err)

	env.clock.Advance(8 * day)
	update, err := env.quests.RecordStatDelta(ctx, "u1", StatChallengesCompletedWeek, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly_challenge"}, update.Expired)
	assert.Contains(t, update.Activated, "weekly_challenge")
	// the new run counts from 3, so 6 is only 3 of 5
	assert.Empty(t, update.Completed)

	progress, err := env.quests.Progress(ctx, "u1")
	require.NoError(t, err)
	var weekly *ActiveQuest
	for i := range progress.Active {
		if progress.Active[i].ID == "weekly_challenge" {
			weekly = &progress.Active[i]
		}
	}
	require.NotNil(t, weekly)
	require.Len(t, weekly.Requirements, 1)
	assert.Equal(t, int64(3), weekly.Requirements[0].Current)
	assert.Equal(t, float64(60), weekly.Percent)

	update, err = env.quests.RecordStatDelta(ctx, "u1", StatChallengesCompletedWeek, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly_challenge"}, completedIDs(update))

	// completed runs block re-entry until their window closes
	env.clock.Advance(day)
	update, err = env.quests.RecordStatDelta(ctx, "u1", StatChallengesCompletedWeek, 5)
	require.NoError(t, err)
	assert.Empty(t, update.Completed)
	assert.NotContains(t, update.Activated, "weekly_challenge")

	env.clock.Advance(7 * day)
	update, err = env.quests.Initialize(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly_challenge"}, update.Activated)
}

func TestStartQuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.quests.StartQuest(ctx, "u1", "no_such_quest")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.quests.StartQuest(ctx, "u1", "squad_war_event")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.quests.StartQuest(ctx, "u1", "legendary_status")
	assert.ErrorIs(t, err, ErrInvalidInput)

	inst, err := env.quests.StartQuest(ctx, "u1", "first_steps")
	require.NoError(t, err)
	assert.Equal(t, "first_steps", inst.QuestID)
	assert.Equal(t, models.QuestStatusActive, inst.Status)

	again, err := env.quests.StartQuest(ctx, "u1", "first_steps")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, again.ID)
}

func TestAvailableQuests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	available, err := env.quests.Available(ctx, "u1")
	require.NoError(t, err)
	ids := make([]string, 0, len(available))
	for _, q := range available {
		ids = append(ids, q.ID)
	}
	assert.ElementsMatch(t, []string{"first_steps", "squad_alliance", "weekly_challenge"}, ids)

	_, err = env.quests.Initialize(ctx, "u1")
	require.NoError(t, err)
	available, err = env.quests.Available(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestExpireStaleSweepsEveryUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2"} {
		_, err := env.quests.Initialize(ctx, id)
		require.NoError(t, err)
	}

	n, err := env.quests.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(7*day + time.Minute)
	n, err = env.quests.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.quests.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChapterFor(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, 1, env.quests.chapterFor(map[string]bool{}))
	assert.Equal(t, 2, env.quests.chapterFor(map[string]bool{"first_steps": true}))
	assert.Equal(t, 3, env.quests.chapterFor(map[string]bool{"first_steps": true, "coin_empire": true}))
	assert.Equal(t, 3, env.quests.chapterFor(map[string]bool{"legendary_status": true}))
}

func TestQuestMetUsesBaseline(t *testing.T) {
	q := Quest{ID: "q", Requirements: map[string]int64{"a": 5, "b": 1}}
	assert.False(t, questMet(q, map[string]int64{"a": 5}, nil))
	assert.True(t, questMet(q, map[string]int64{"a": 5, "b": 1}, nil))
	assert.False(t, questMet(q, map[string]int64{"a": 7, "b": 1}, map[string]int64{"a": 3}))
	assert.True(t, questMet(q, map[string]int64{"a": 8, "b": 1}, map[string]int64{"a": 3}))
}

func TestValidateQuestCatalog(t *testing.T) {
	require.NoError(t, ValidateQuestCatalog(QuestCatalog()))

	broken := []Quest{
		{ID: "a", Requirements: map[string]int64{"x": 1}, Prerequisites: []string{"b"}},
		{ID: "b", Requirements: map[string]int64{"x": 1}, Prerequisites: []string{"a"}},
		{ID: "c", Requirements: map[string]int64{"x": 1}, Prerequisites: []string{"ghost"}},
		{ID: "d", Requirements: map[string]int64{"x": 1}, IsRepeatable: true},
		{ID: "e"},
	}
	err := ValidateQuestCatalog(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prerequisite cycle")
	assert.Contains(t, err.Error(), `quest "c" requires unknown quest "ghost"`)
	assert.Contains(t, err.Error(), `repeatable quest "d" needs a time limit`)
	assert.Contains(t, err.Error(), `quest "e" has no requirements`)
}
