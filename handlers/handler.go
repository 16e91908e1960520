// handlers/handler.go - Route table and shared helpers for the REST API
package handlers

import (
	"errors"

	"zentro/middleware"
	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Handler serves the user facing API.
type Handler struct {
	Ledger       *services.ProgressionService
	Wallet       *services.WalletService
	Achievements *services.AchievementService
	Quests       *services.QuestService
	Activity     *services.ActivityService
	Companion    *services.CompanionService
	Goals        *services.GoalService
	Hub          *services.Hub
	Log          zerolog.Logger
}

// Register mounts the API on an authenticated router. companionLimit guards
// the chat endpoints and may be nil.
func (h *Handler) Register(api fiber.Router, companionLimit fiber.Handler) {
	api.Post("/stats", h.RecordStat)

	// Progression routes
	progression := api.Group("/progression")
	progression.Get("/", h.GetProgression)
	progression.Post("/xp", h.AwardXP)
	progression.Get("/history", h.GetXPHistory)

	leaderboard := api.Group("/leaderboard")
	leaderboard.Get("/xp", h.GetXPLeaderboard)
	leaderboard.Get("/coins", h.GetCoinLeaderboard)

	achievements := api.Group("/achievements")
	achievements.Get("/", h.GetAchievements)
	achievements.Get("/progress", h.GetAchievementProgress)
	achievements.Get("/catalog", h.GetAchievementCatalog)

	quests := api.Group("/quests")
	quests.Get("/", h.GetQuestProgress)
	quests.Get("/available", h.GetAvailableQuests)
	quests.Post("/:id/start", h.StartQuest)

	wallet := api.Group("/wallet")
	wallet.Get("/", h.GetWallet)
	wallet.Get("/transactions", h.GetTransactions)
	wallet.Post("/daily-bonus", h.ClaimDailyBonus)
	wallet.Post("/spend", h.Spend)
	api.Post("/bets", h.PlaceBet)

	companion := api.Group("/companion")
	companion.Get("/memory", h.GetCompanionMemory)
	companion.Get("/history", h.GetCompanionHistory)
	companion.Delete("/history", h.ClearCompanionHistory)
	companion.Get("/personas", h.GetPersonas)
	companion.Put("/persona", h.SetPersona)
	companion.Post("/style", h.DetectStyle)
	if companionLimit != nil {
		companion.Post("/chat", companionLimit, h.Chat)
	} else {
		companion.Post("/chat", h.Chat)
	}

	goals := api.Group("/goals")
	goals.Get("/", h.GetGoals)
	goals.Post("/", h.CreateGoal)
	goals.Get("/stats", h.GetGoalStats)
	goals.Get("/:id", h.GetGoal)
	goals.Put("/:id", h.UpdateGoal)
	goals.Delete("/:id", h.DeleteGoal)
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidAmount):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyClaimedToday):
		return fiber.StatusConflict
	case services.IsTransport(err):
		return fiber.StatusServiceUnavailable
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// RespondError writes err as a JSON error. Server side failures are logged
// and their details are not sent to the client.
func RespondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("request failed")
		if status == fiber.StatusServiceUnavailable {
			return utils.JSONError(c, status, "Service temporarily unavailable. Please try again later.")
		}
		return utils.JSONError(c, status, "Internal Server Error")
	}
	return utils.JSONError(c, status, err.Error())
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	return RespondError(c, h.Log, err)
}

// currentUser returns the authenticated user id or writes a 401.
func currentUser(c *fiber.Ctx) (string, bool, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return "", false, utils.JSONError(c, fiber.StatusUnauthorized, "User not authenticated")
	}
	return userID, true, nil
}

func badBody(c *fiber.Ctx) error {
	return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
}
