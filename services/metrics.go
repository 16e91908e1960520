// services/metrics.go - Prometheus counters
package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	achievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_achievements_unlocked_total",
		Help: "Achievements granted, by achievement id.",
	}, []string{"achievement"})

	questsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_quests_completed_total",
		Help: "Quest instances completed, by quest id.",
	}, []string{"quest"})

	questsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_quests_expired_total",
		Help: "Quest instances expired before completion, by quest id.",
	}, []string{"quest"})

	coinsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_coins_credited_total",
		Help: "Coins credited to wallets, by transaction type.",
	}, []string{"type"})

	coinsDebited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_coins_debited_total",
		Help: "Coins debited from wallets, by transaction type.",
	}, []string{"type"})

	debitsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zentro_debits_rejected_total",
		Help: "Debits rejected for insufficient balance.",
	})

	dailyBonusesClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zentro_daily_bonuses_claimed_total",
		Help: "Daily bonuses claimed.",
	})

	betsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zentro_bets_placed_total",
		Help: "Bets placed.",
	})

	betsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_bets_resolved_total",
		Help: "Bets resolved, by outcome.",
	}, []string{"outcome"})

	payoutsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentro_payouts_total",
		Help: "Reward payout attempts, by result.",
	}, []string{"result"})

	textgenFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zentro_textgen_fallbacks_total",
		Help: "Companion replies served from the canned fallback list.",
	})
)
