// handlers/progression.go
package handlers

import (
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

// Largest XP grant a client may request at once.
const maxXPAward = 10000

type AwardXPRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// GetProgression returns the caller's level and progress.
func (h *Handler) GetProgression(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	view, err := h.Ledger.GetProgression(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"progression": view})
}

// AwardXP adds XP to the caller. Level-ups are reported in the response.
func (h *Handler) AwardXP(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var req AwardXPRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Amount <= 0 || req.Amount > maxXPAward {
		return utils.JSONError(c, fiber.StatusBadRequest, "Amount must be between 1 and 10000")
	}
	if req.Reason == "" {
		req.Reason = "activity"
	}

	award, err := h.Ledger.AwardXP(c.UserContext(), userID, req.Amount, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.Ledger.GetProgression(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"award": award, "progression": view})
}

func (h *Handler) GetXPHistory(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	limit := utils.QueryInt(c, "limit", 50, 1, 200)
	events, err := h.Ledger.XPHistory(c.UserContext(), userID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"history": events, "count": len(events)})
}
