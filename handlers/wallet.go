// handlers/wallet.go
package handlers

import (
	"strings"

	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

type SpendRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ItemID      string `json:"item_id"`
}

type PlaceBetRequest struct {
	TargetID   string `json:"target_id"`
	Amount     int64  `json:"amount"`
	Prediction string `json:"prediction"`
}

// GetWallet returns the caller's wallet, opening it on first access.
func (h *Handler) GetWallet(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	wallet, err := h.Wallet.GetWallet(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"wallet": wallet})
}

func (h *Handler) GetTransactions(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	limit := utils.QueryInt(c, "limit", 50, 1, 200)
	txs, err := h.Wallet.Transactions(c.UserContext(), userID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"transactions": txs, "count": len(txs)})
}

// ClaimDailyBonus credits today's bonus. A second claim on the same day is
// answered with 409.
func (h *Handler) ClaimDailyBonus(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	bonus, err := h.Wallet.ClaimDailyBonus(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"bonus":       bonus.Bonus,
		"streak":      bonus.Streak,
		"transaction": bonus.Transaction,
	})
}

// Spend debits coins for a purchase.
func (h *Handler) Spend(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var req SpendRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Purchase"
	}
	var meta map[string]interface{}
	if req.ItemID != "" {
		meta = map[string]interface{}{"item_id": req.ItemID}
	}

	tx, err := h.Wallet.Debit(c.UserContext(), userID, req.Amount, services.TxPurchase, description, meta)
	if err != nil {
		return h.fail(c, err)
	}
	wallet, err := h.Wallet.GetWallet(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"transaction": tx, "balance": wallet.Balance})
}

// PlaceBet stakes coins on a target outcome
// POST /api/bets {"target_id": "...", "amount": 100, "prediction": "self"}
func (h *Handler) PlaceBet(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var req PlaceBetRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	bet, err := h.Wallet.PlaceBet(c.UserContext(), userID, req.TargetID, req.Amount, req.Prediction)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "bet": bet})
}
