package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

// queryLimit reads the optional "limit" query parameter. Absent means 0, so
// services apply their own default.
func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, shared.NewBadRequestError(err, "limit must be a positive integer")
	}
	return limit, nil
}
