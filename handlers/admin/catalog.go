// handlers/admin/catalog.go
package admin

import (
	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

// GetCatalog returns both catalogs with their validation results.
func (h *Handler) GetCatalog(c *fiber.Ctx) error {
	achievements := services.AchievementCatalog()
	quests := h.Quests.Catalog()

	problems := []string{}
	if err := services.ValidateAchievementCatalog(achievements, services.ChatMilestoneIDs()); err != nil {
		problems = append(problems, err.Error())
	}
	if err := services.ValidateQuestCatalog(quests); err != nil {
		problems = append(problems, err.Error())
	}

	return utils.JSONSuccess(c, fiber.Map{
		"achievements": achievements,
		"quests":       quests,
		"valid":        len(problems) == 0,
		"problems":     problems,
	})
}
