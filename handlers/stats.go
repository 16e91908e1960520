package handlers

import (
	"strings"

	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

type RecordStatRequest struct {
	StatKey string `json:"stat_key"`
	Delta   int64  `json:"delta"`
}

// RecordStat reports a client stat delta to the achievement and quest
// engines. Server-owned counters are rejected.
// POST /api/stats {"stat_key": "battle_wins", "delta": 1}
func (h *Handler) RecordStat(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var req RecordStatRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.StatKey = strings.TrimSpace(req.StatKey)
	if req.StatKey == "" {
		return utils.JSONError(c, fiber.StatusBadRequest, "stat_key is required")
	}
	if services.IsServerStat(req.StatKey) {
		return utils.JSONError(c, fiber.StatusBadRequest, "stat_key "+req.StatKey+" is recorded by the server")
	}

	result, err := h.Activity.Record(c.UserContext(), userID, req.StatKey, req.Delta)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"result": result})
}
