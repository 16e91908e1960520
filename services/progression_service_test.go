package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{-10, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{1000, 5},
		{4499, 9},
		{4500, 10},
		{5499, 10},
		{5500, 11},
		{14500, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelForXPIsMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := int64(1); xp <= 30000; xp += 7 {
		level := LevelForXP(xp)
		require.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		prev = level
	}
}

func TestLevelBounds(t *testing.T) {
	floor, next := LevelBounds(1)
	assert.Equal(t, int64(0), floor)
	assert.Equal(t, int64(100), next)

	floor, next = LevelBounds(10)
	assert.Equal(t, int64(4500), floor)
	assert.Equal(t, int64(5500), next)

	floor, next = LevelBounds(12)
	assert.Equal(t, int64(6500), floor)
	assert.Equal(t, int64(7500), next)
}

func TestAwardXP(t *testing.T) {
	env := newTestEnv(t)
	sink := &recordingSink{}
	env.ledger.SetStatSink(sink)
	ctx := context.Background()

	award, err := env.ledger.AwardXP(ctx, "u1", 80, "warmup")
	require.NoError(t, err)
	assert.Equal(t, int64(80), award.NewXP)
	assert.Equal(t, 1, award.NewLevel)
	assert.False(t, award.LeveledUp)

	award, err = env.ledger.AwardXP(ctx, "u1", 250, "battle")
	require.NoError(t, err)
	assert.Equal(t, int64(330), award.NewXP)
	assert.Equal(t, 3, award.NewLevel)
	assert.Equal(t, 1, award.OldLevel)
	assert.True(t, award.LeveledUp)
	assert.Equal(t, []int64{3}, sink.values(StatLevelReached))

	view, err := env.ledger.GetProgression(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Level)
	assert.Equal(t, int64(270), view.XPToNext)

	history, err := env.ledger.XPHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "battle", history[0].Reason)
}

func TestAwardXPIgnoresNonPositiveAmounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.AwardXP(ctx, "u1", 150, "start")
	require.NoError(t, err)

	for _, amount := range []int64{0, -40} {
		award, err := env.ledger.AwardXP(ctx, "u1", amount, "noop")
		require.NoError(t, err)
		assert.False(t, award.LeveledUp)
		assert.Equal(t, int64(150), award.NewXP)
	}

	history, err := env.ledger.XPHistory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestProgressionLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for user, xp := range map[string]int64{"a": 100, "b": 900, "c": 400} {
		_, err := env.ledger.AwardXP(ctx, user, xp, "seed")
		require.NoError(t, err)
	}

	board, err := env.ledger.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "b", board[0].UserID)
	assert.Equal(t, "c", board[1].UserID)
}
