// handlers/admin/admin.go - Operator endpoints
package admin

import (
	"zentro/handlers"
	"zentro/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Handler serves the admin API. Routes must be mounted behind the admin
// middleware.
type Handler struct {
	Wallet  *services.WalletService
	Payouts *services.PayoutService
	Quests  *services.QuestService
	// SweepLimit bounds a manual payout sweep.
	SweepLimit int
	Log        zerolog.Logger
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/bets/:target/resolve", h.ResolveBets)
	r.Post("/payouts/sweep", h.SweepPayouts)
	r.Get("/payouts/:user", h.GetPendingPayouts)
	r.Post("/wallet/credit", h.CreditWallet)
	r.Get("/catalog", h.GetCatalog)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	return handlers.RespondError(c, h.Log, err)
}
