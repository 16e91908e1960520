// utils/http.go - Response and query helpers for fiber handlers
package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// JSONError sends a JSON error response
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// JSONSuccess sends a JSON success response. Map payloads are merged into
// the envelope, anything else is placed under "data".
func JSONSuccess(c *fiber.Ctx, data interface{}) error {
	response := fiber.Map{
		"success": true,
	}

	switch v := data.(type) {
	case fiber.Map:
		for k, val := range v {
			response[k] = val
		}
	case map[string]interface{}:
		for k, val := range v {
			response[k] = val
		}
	default:
		response["data"] = data
	}

	return c.JSON(response)
}

// QueryInt reads an integer query parameter clamped to [min, max].
func QueryInt(c *fiber.Ctx, key string, def, min, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return ClampInt(n, min, max)
}

// ClampInt bounds n to [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
