// handlers/quests.go
package handlers

import (
	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

// GetQuestProgress returns active quests, chapter, titles and unlocks.
func (h *Handler) GetQuestProgress(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	// Starting quests are activated lazily on first visit.
	if _, err := h.Quests.Initialize(c.UserContext(), userID); err != nil {
		return h.fail(c, err)
	}
	progress, err := h.Quests.Progress(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"quests": progress})
}

func (h *Handler) GetAvailableQuests(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	quests, err := h.Quests.Available(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	if quests == nil {
		quests = []services.Quest{}
	}
	return utils.JSONSuccess(c, fiber.Map{"quests": quests, "count": len(quests)})
}

// StartQuest activates an available quest
// POST /api/quests/:id/start
func (h *Handler) StartQuest(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	instance, err := h.Quests.StartQuest(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"quest": instance})
}
