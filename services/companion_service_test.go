package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ GenerationConfig) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func newCompanion(t *testing.T, gen TextGenerator) (*CompanionService, *recordingSink) {
	t.Helper()
	svc := NewCompanionService(newTestDB(t), gen, zerolog.Nop())
	clock := newFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	svc.SetClock(clock.Now, time.UTC)
	sink := &recordingSink{}
	svc.SetStatSink(sink)
	return svc, sink
}

func TestChatStoresTurnsAndReportsMessage(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure thing!"}
	svc, sink := newCompanion(t, gen)
	ctx := context.Background()

	reply, err := svc.Chat(ctx, "u1", "I'm working on a compiler in Go.")
	require.NoError(t, err)
	assert.Equal(t, "Sure thing!", reply.Reply)
	assert.False(t, reply.Fallback)
	assert.Equal(t, DefaultPersona, reply.Persona)

	gen.reply = "Nice."
	_, err = svc.Chat(ctx, "u1", "Can you help me debug it?")
	require.NoError(t, err)

	prompt := gen.lastPrompt()
	assert.True(t, strings.HasPrefix(prompt, systemPrompt))
	assert.Contains(t, prompt, "Hacker Buddy")
	assert.Contains(t, prompt, "User: I'm working on a compiler in Go.\nZenny: Sure thing!\n")
	assert.Contains(t, prompt, `the user mentioned: "I'm working on a compiler in Go"`)
	assert.True(t, strings.HasSuffix(prompt, "User: Can you help me debug it?\nZenny:"))

	history, err := svc.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[3].Role)
	assert.Equal(t, PersonaHackerBuddy, history[3].Style)

	assert.Equal(t, []int64{1, 1}, sink.values(StatMessagesToCompanion))

	mem, err := svc.Memory(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mem.TotalMessages)
	require.Len(t, mem.Recollections, 1)
	assert.Len(t, mem.SentimentHistory, 2)
	assert.Len(t, mem.TopWords, 3)
}

func TestChatFallsBackWhenGenerationFails(t *testing.T) {
	gen := &fakeGenerator{err: &TransportError{Op: "generate text", Err: errors.New("boom")}}
	svc, sink := newCompanion(t, gen)
	svc.pick = func(int) int { return 2 }

	reply, err := svc.Chat(context.Background(), "u1", "hello there")
	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.Equal(t, fallbackReplies[2], reply.Reply)
	assert.Equal(t, []int64{1}, sink.values(StatMessagesToCompanion))

	history, err := svc.History(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].Fallback)
}

func TestChatWithoutGeneratorUsesFallback(t *testing.T) {
	svc, _ := newCompanion(t, nil)
	reply, err := svc.Chat(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.Contains(t, fallbackReplies, reply.Reply)
}

func TestChatValidatesMessage(t *testing.T) {
	svc, sink := newCompanion(t, &fakeGenerator{reply: "hi"})
	ctx := context.Background()

	_, err := svc.Chat(ctx, "u1", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Chat(ctx, "u1", strings.Repeat("a", maxChatMessageLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, sink.values(StatMessagesToCompanion))
}

func TestPersonaPreference(t *testing.T) {
	gen := &fakeGenerator{reply: "LET'S GO"}
	svc, _ := newCompanion(t, gen)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetPersona(ctx, "u1", "pirate"), ErrInvalidInput)

	persona, err := svc.Persona(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, persona)

	require.NoError(t, svc.SetPersona(ctx, "u1", PersonaHypeBot))
	persona, err = svc.Persona(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, PersonaHypeBot, persona)

	reply, err := svc.Chat(ctx, "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, PersonaHypeBot, reply.Style)
	assert.Equal(t, PersonaHypeBot, reply.Persona)

	// a detected style still wins for the message
	reply, err = svc.Chat(ctx, "u1", "my python code throws an error")
	require.NoError(t, err)
	assert.Equal(t, PersonaHackerBuddy, reply.Style)
	assert.Equal(t, PersonaHypeBot, reply.Persona)
}

func TestClearHistoryKeepsMemory(t *testing.T) {
	svc, _ := newCompanion(t, &fakeGenerator{reply: "ok"})
	ctx := context.Background()

	_, err := svc.Chat(ctx, "u1", "hello")
	require.NoError(t, err)

	n, err := svc.ClearHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	history, err := svc.History(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	mem, err := svc.Memory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mem.TotalMessages)
}

func TestMemoryDefaultsForNewUser(t *testing.T) {
	svc, _ := newCompanion(t, nil)
	mem, err := svc.Memory(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Zero(t, mem.TotalMessages)
	assert.Equal(t, DefaultPersona, mem.Persona)
	assert.Equal(t, DefaultVibe(), mem.Vibe)
	assert.NotNil(t, mem.Recollections)
	assert.NotNil(t, mem.TopWords)
	assert.Empty(t, mem.RecentSentiment)
}

func TestConcurrentObserveCountsEveryMessage(t *testing.T) {
	svc, _ := newCompanion(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Observe(ctx, "u1", "great progress today")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mem, err := svc.Memory(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), mem.TotalMessages)
	require.Len(t, mem.TopWords, 1)
	assert.Equal(t, 8, mem.TopWords[0].Count)
}

func TestTopWordCounts(t *testing.T) {
	got := topWordCounts(map[string]int{"go": 3, "rust": 3, "zig": 1, "c": 2}, 3)
	assert.Equal(t, []WordCount{{"go", 3}, {"rust", 3}, {"c", 2}}, got)
}

func TestChatMilestonesUnlockAchievements(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCompanionService(env.db, &fakeGenerator{reply: "hi"}, zerolog.Nop())
	svc.SetClock(env.clock.Now, time.UTC)
	svc.SetStatSink(env.activity)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Chat(ctx, "u1", "hello")
		require.NoError(t, err)
	}

	rows, err := env.achievements.ListUnlocked(ctx, "u1")
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AchievementID)
	}
	assert.Contains(t, ids, "ce_first_dm_zenny")
	assert.Contains(t, ids, "ce_chit_chatter_5")
	assert.NotContains(t, ids, "ce_ai_fan_10")
}
