// handlers/goals.go
package handlers

import (
	"zentro/services"
	"zentro/utils"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetGoals(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	goals, err := h.Goals.GetAllGoals(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"goals": goals, "count": len(goals)})
}

func (h *Handler) GetGoal(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	goal, err := h.Goals.GetGoal(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"goal": goal})
}

// CreateGoal creates a goal. Any id in the body is ignored.
func (h *Handler) CreateGoal(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var in services.GoalInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.ID = ""

	goal, err := h.Goals.SaveGoal(c.UserContext(), userID, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "goal": goal})
}

// UpdateGoal applies the fields present in the body.
func (h *Handler) UpdateGoal(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}

	var in services.GoalInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.ID = c.Params("id")

	goal, err := h.Goals.SaveGoal(c.UserContext(), userID, in)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"goal": goal})
}

func (h *Handler) DeleteGoal(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	if err := h.Goals.DeleteGoal(c.UserContext(), userID, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Goal deleted"})
}

// GetGoalStats returns goal counts and activity streaks.
func (h *Handler) GetGoalStats(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	stats, err := h.Goals.Stats(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"stats": stats})
}
