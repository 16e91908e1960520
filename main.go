// main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zentro/config"
	"zentro/database"
	"zentro/handlers"
	"zentro/handlers/admin"
	"zentro/middleware"
	"zentro/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger configured yet.
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := config.NewLogger(cfg.LogLevel, cfg.LogPretty)
	cfg.LogSummary(log)

	// Initialize database
	db, err := database.InitDB(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnLifetime: cfg.DBConnLifetime,
		LogSQL:       cfg.DBLogSQL,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database initialization failed")
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	loc := cfg.Location()
	hub := services.NewHub(cfg.EventBufferSize)

	wallet := services.NewWalletService(db, hub, log)
	wallet.SetClock(services.SystemClock, loc)
	wallet.SetStartingBalance(int64(cfg.StartingBalance))
	ledger := services.NewProgressionService(db, hub, log)
	payouts := services.NewPayoutService(db, wallet, ledger, hub, log)
	achievements := services.NewAchievementService(db, payouts, hub, log)
	quests := services.NewQuestService(db, payouts, hub, log)
	quests.SetAchievements(achievements)
	activity := services.NewActivityService(achievements, quests, log)
	wallet.SetStatSink(activity)
	ledger.SetStatSink(activity)

	var gen services.TextGenerator
	if cfg.OpenAIAPIKey != "" {
		g, err := services.NewOpenAIGenerator(services.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			MaxRetries: cfg.OpenAIMaxRetries,
			Timeout:    cfg.OpenAITimeout,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("text generator initialization failed")
		}
		gen = g
	} else {
		log.Warn().Msg("ZENTRO_OPENAI_API_KEY not set, companion will answer with fallback replies")
	}
	companion := services.NewCompanionService(db, gen, log)
	companion.SetClock(services.SystemClock, loc)
	companion.SetStatSink(activity)
	goals := services.NewGoalService(db, log)
	goals.SetClock(services.SystemClock, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewScheduler(services.SchedulerConfig{
		PayoutSweepSpec: cfg.PayoutSweepSpec,
		PayoutBatchSize: cfg.PayoutBatchSize,
		QuestExpirySpec: cfg.QuestExpirySpec,
	}, payouts, quests, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed to start")
	}
	defer scheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler(log),
		BodyLimit:             1 * 1024 * 1024,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	generalLimit := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, "")
	companionLimit := middleware.NewRateLimiter(cfg.CompanionRateLimitMax, cfg.CompanionRateWindow,
		"Too many messages. Please slow down.")
	generalLimit.StartCleanup(ctx, 5*time.Minute, 30*time.Minute)
	companionLimit.StartCleanup(ctx, 5*time.Minute, 30*time.Minute)

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.IsAdmin)

	h := &handlers.Handler{
		Ledger:       ledger,
		Wallet:       wallet,
		Achievements: achievements,
		Quests:       quests,
		Activity:     activity,
		Companion:    companion,
		Goals:        goals,
		Hub:          hub,
		Log:          log.With().Str("component", "http").Logger(),
	}
	adm := &admin.Handler{
		Wallet:     wallet,
		Payouts:    payouts,
		Quests:     quests,
		SweepLimit: cfg.PayoutBatchSize,
		Log:        log.With().Str("component", "admin").Logger(),
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if err := database.HealthCheck(); err != nil {
			status, code = "degraded", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/ws", handlers.RequireUpgrade, auth.WebSocket(), h.StreamEvents())

	// API Routes
	api := app.Group("/api", auth.Middleware(), generalLimit.Handler())
	h.Register(api, companionLimit.Handler())
	adm.Register(api.Group("/admin", auth.Admin()))

	go func() {
		log.Info().Str("port", cfg.Port).Msg("🚀 HTTP server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
