package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/barachat/domain/chat"
	"github.com/example/barachat/modules/auth"
)

// UserContextKey is the key used to store the verified identity in the
// Fiber context.
const UserContextKey = "user"

// AuthMiddleware creates a middleware that requires a valid bearer token.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "Authentication required",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "Invalid token",
			})
		}

		claims, err := authPort.Verify(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "Invalid token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// claimsFromCtx returns the identity stored by AuthMiddleware, or nil when
// the route was reached without passing it.
func claimsFromCtx(c *fiber.Ctx) *chat.Claims {
	claims, _ := c.Locals(UserContextKey).(*chat.Claims)
	return claims
}
