package middlewares

import (
	"context"

	"coderoast-backend/models"

	"github.com/gofiber/fiber/v2"
)

type KeyAuthenticator interface {
	Authenticate(ctx context.Context, header string) (*models.APIKey, error)
}

// RequireAPIKey guards the public API: the Authorization header must carry a valid
// key whose owner has an active paid plan. The key owner becomes the request user.
func RequireAPIKey(keys KeyAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := keys.Authenticate(c.UserContext(), c.Get(authHeader))
		if err != nil {
			return err
		}
		c.Locals(localUserID, key.UserId)
		return c.Next()
	}
}
