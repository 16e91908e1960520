package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"zentro/database"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a migrated sqlite database in a temp dir. A single
// connection serializes writers the way row locks do in postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zentro.db")
	db, err := database.Open(sqlite.Open(path), database.PoolConfig{MaxOpenConns: 1}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, zerolog.Nop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingSink collects stat reports.
type recordingSink struct {
	mu    sync.Mutex
	stats []recordedStat
}

type recordedStat struct {
	UserID string
	Key    string
	Delta  int64
}

func (r *recordingSink) RecordStat(_ context.Context, userID, statKey string, delta int64) {
	r.mu.Lock()
	r.stats = append(r.stats, recordedStat{userID, statKey, delta})
	r.mu.Unlock()
}

func (r *recordingSink) values(key string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, s := range r.stats {
		if s.Key == key {
			out = append(out, s.Delta)
		}
	}
	return out
}

// testEnv wires every service the way main does.
type testEnv struct {
	db           *gorm.DB
	clock        *fakeClock
	hub          *Hub
	wallet       *WalletService
	ledger       *ProgressionService
	payouts      *PayoutService
	achievements *AchievementService
	quests       *QuestService
	activity     *ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := zerolog.Nop()
	clock := newFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	hub := NewHub(64)

	wallet := NewWalletService(db, hub, log)
	wallet.SetClock(clock.Now, time.UTC)
	ledger := NewProgressionService(db, hub, log)
	ledger.SetClock(clock.Now)
	payouts := NewPayoutService(db, wallet, ledger, hub, log)
	payouts.SetClock(clock.Now)
	achievements := NewAchievementService(db, payouts, hub, log)
	achievements.SetClock(clock.Now)
	quests := NewQuestService(db, payouts, hub, log)
	quests.SetClock(clock.Now)
	quests.SetAchievements(achievements)

	activity := NewActivityService(achievements, quests, log)
	wallet.SetStatSink(activity)
	ledger.SetStatSink(activity)

	return &testEnv{
		db:           db,
		clock:        clock,
		hub:          hub,
		wallet:       wallet,
		ledger:       ledger,
		payouts:      payouts,
		achievements: achievements,
		quests:       quests,
		activity:     activity,
	}
}
