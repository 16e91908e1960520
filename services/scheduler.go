// services/scheduler.go - Background jobs: payout retries and quest expiry
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SchedulerConfig holds the cron specs (with a seconds field).
type SchedulerConfig struct {
	PayoutSweepSpec string
	PayoutBatchSize int
	QuestExpirySpec string
	JobTimeout      time.Duration
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cfg     SchedulerConfig
	payouts *PayoutService
	quests  *QuestService
	cron    *rcron.Cron
	log     zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(cfg SchedulerConfig, payouts *PayoutService, quests *QuestService, log zerolog.Logger) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	if cfg.PayoutBatchSize <= 0 {
		cfg.PayoutBatchSize = 100
	}
	return &Scheduler{
		cfg:     cfg,
		payouts: payouts,
		quests:  quests,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the jobs and starts the cron runner. Jobs skip a tick
// while their previous run is still going.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := rcron.New(
		rcron.WithSeconds(),
		rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger), rcron.Recover(rcron.DiscardLogger)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"payout_sweep", s.cfg.PayoutSweepSpec, s.sweepPayouts},
		{"quest_expiry", s.cfg.QuestExpirySpec, s.expireQuests},
	}
	for _, job := range jobs {
		job := job
		if job.spec == "" {
			continue
		}
		if _, err := c.AddFunc(job.spec, func() {
			jobCtx, done := context.WithTimeout(runCtx, s.cfg.JobTimeout)
			defer done()
			job.run(jobCtx)
		}); err != nil {
			cancel()
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true
	s.log.Info().
		Str("payout_sweep", s.cfg.PayoutSweepSpec).
		Str("quest_expiry", s.cfg.QuestExpirySpec).
		Msg("⏰ scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) sweepPayouts(ctx context.Context) {
	if s.payouts == nil {
		return
	}
	if _, _, err := s.payouts.SweepDue(ctx, s.cfg.PayoutBatchSize); err != nil {
		s.log.Error().Err(err).Msg("payout sweep failed")
	}
}

func (s *Scheduler) expireQuests(ctx context.Context) {
	if s.quests == nil {
		return
	}
	if _, err := s.quests.ExpireStale(ctx); err != nil {
		s.log.Error().Err(err).Msg("quest expiry failed")
	}
}
