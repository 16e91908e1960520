// handlers/leaderboard.go
package handlers

import (
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

type coinEntry struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// GetXPLeaderboard returns the top users by XP
// GET /api/leaderboard/xp?limit=100
func (h *Handler) GetXPLeaderboard(c *fiber.Ctx) error {
	limit := utils.QueryInt(c, "limit", 100, 1, 100)
	views, err := h.Ledger.Leaderboard(c.UserContext(), limit)
	if err != nil {
		return h.fail(c, err)
	}

	entries := make([]fiber.Map, 0, len(views))
	for i, v := range views {
		entries = append(entries, fiber.Map{
			"rank":    i + 1,
			"user_id": v.UserID,
			"xp":      v.XP,
			"level":   v.Level,
		})
	}
	return utils.JSONSuccess(c, fiber.Map{"leaderboard": entries, "count": len(entries)})
}

// GetCoinLeaderboard returns the richest wallets
// GET /api/leaderboard/coins?limit=100
func (h *Handler) GetCoinLeaderboard(c *fiber.Ctx) error {
	limit := utils.QueryInt(c, "limit", 100, 1, 100)
	wallets, err := h.Wallet.Leaderboard(c.UserContext(), limit)
	if err != nil {
		return h.fail(c, err)
	}

	entries := make([]coinEntry, 0, len(wallets))
	for i, w := range wallets {
		entries = append(entries, coinEntry{Rank: i + 1, UserID: w.UserID, Balance: w.Balance})
	}
	return utils.JSONSuccess(c, fiber.Map{"leaderboard": entries, "count": len(entries)})
}
