// handlers/achievements.go
package handlers

import (
	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

// GetAchievements returns the caller's unlocked achievements and stats.
func (h *Handler) GetAchievements(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	unlocked, err := h.Achievements.ListUnlocked(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	stats, err := h.Achievements.Stats(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"achievements": unlocked,
		"count":        len(unlocked),
		"total":        len(services.AchievementCatalog()),
		"stats":        stats,
	})
}

func (h *Handler) GetAchievementProgress(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	progress, err := h.Achievements.Progress(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"progress": progress})
}

// GetAchievementCatalog lists every achievement, optionally of one category
// GET /api/achievements/catalog?category=battle
func (h *Handler) GetAchievementCatalog(c *fiber.Ctx) error {
	catalog := services.AchievementCatalog()
	if category := c.Query("category"); category != "" {
		catalog = h.Achievements.ByCategory(category)
		if catalog == nil {
			catalog = []services.Achievement{}
		}
	}
	return utils.JSONSuccess(c, fiber.Map{"achievements": catalog, "count": len(catalog)})
}
