// handlers/companion.go
package handlers

import (
	"strings"

	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

type ChatRequest struct {
	Message string `json:"message"`
}

type PersonaRequest struct {
	Persona string `json:"persona"`
}

// Chat answers one message. Generation failures still produce a reply.
func (h *Handler) Chat(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	reply, err := h.Companion.Chat(c.UserContext(), userID, req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"reply": reply})
}

// GetCompanionMemory returns what the companion remembers
// GET /api/companion/memory?top=10
func (h *Handler) GetCompanionMemory(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	top := utils.QueryInt(c, "top", 10, 0, 100)
	memory, err := h.Companion.Memory(c.UserContext(), userID, top)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"memory": memory})
}

func (h *Handler) GetCompanionHistory(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	limit := utils.QueryInt(c, "limit", 50, 1, 200)
	messages, err := h.Companion.History(c.UserContext(), userID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"messages": messages, "count": len(messages)})
}

// ClearCompanionHistory deletes the conversation. Memory is kept.
func (h *Handler) ClearCompanionHistory(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	deleted, err := h.Companion.ClearHistory(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"deleted": deleted})
}

func (h *Handler) GetPersonas(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	current, err := h.Companion.Persona(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"personas": services.Personas(), "current": current})
}

func (h *Handler) SetPersona(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var req PersonaRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.Companion.SetPersona(c.UserContext(), userID, strings.TrimSpace(req.Persona)); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"persona": strings.TrimSpace(req.Persona)})
}

// DetectStyle reports which persona a message would be answered in.
func (h *Handler) DetectStyle(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	style := services.SelectStyle(req.Message)
	persona, _ := services.FindPersona(style)
	return utils.JSONSuccess(c, fiber.Map{"style": style, "persona": persona})
}
