package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionID session id, set c.locals name
	SessionID = "SessionID"
)

// SessionMiddleware 為每條連線配發 session id
// 身分綁定走 select_participant,不在這裡處理
func SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(SessionID, uuid.New().String())
		return c.Next()
	}
}
