package shared

import "github.com/gofiber/fiber/v2"

// CurrentUserID reads the id set by the auth middleware, empty when anonymous.
func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserID).(string)
	return id
}
