// handlers/admin/economy.go
package admin

import (
	"strings"

	"zentro/middleware"
	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

type ResolveBetsRequest struct {
	WinnerID string `json:"winner_id"`
}

type CreditRequest struct {
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// ResolveBets settles every pending bet on a target
// POST /api/admin/bets/:target/resolve {"winner_id": "..."}
func (h *Handler) ResolveBets(c *fiber.Ctx) error {
	var req ResolveBetsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.Wallet.ResolveBet(c.UserContext(), c.Params("target"), req.WinnerID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"resolution": res})
}

// SweepPayouts retries due payouts now instead of waiting for the scheduler.
func (h *Handler) SweepPayouts(c *fiber.Ctx) error {
	limit := h.SweepLimit
	if limit <= 0 {
		limit = 100
	}
	limit = utils.QueryInt(c, "limit", limit, 1, 1000)

	paid, failed, err := h.Payouts.SweepDue(c.UserContext(), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"paid": paid, "failed": failed})
}

func (h *Handler) GetPendingPayouts(c *fiber.Ctx) error {
	payouts, err := h.Payouts.Pending(c.UserContext(), c.Params("user"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"payouts": payouts, "count": len(payouts)})
}

// CreditWallet grants coins to a user. The granting admin is recorded on the
// transaction.
func (h *Handler) CreditWallet(c *fiber.Ctx) error {
	var req CreditRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return utils.JSONError(c, fiber.StatusBadRequest, "user_id is required")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Admin grant"
	}

	adminID, _ := middleware.GetUserID(c)
	tx, err := h.Wallet.Credit(c.UserContext(), req.UserID, req.Amount, services.TxAdminGrant, description,
		map[string]interface{}{"granted_by": adminID})
	if err != nil {
		return h.fail(c, err)
	}

	h.Log.Info().
		Str("admin_id", adminID).
		Str("user_id", req.UserID).
		Int64("amount", req.Amount).
		Msg("admin wallet credit")
	return utils.JSONSuccess(c, fiber.Map{"transaction": tx})
}
