package middleware

import (
	"crypto/subtle"

	"github.com/MartinWeidner/CourseFox/app/controllers"
	"github.com/MartinWeidner/CourseFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a logged-in session for API routes and returns JSON 401.
func RequireAuth(c *fiber.Ctx) error {
	v := c.Locals(controllers.FROM_PROTECTED)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireAdmin gates admin tooling behind the static shared-secret cookie.
// The admin surface has its own authentication outside this service; all we
// check here is possession of the shared secret.
func RequireAdmin(c *fiber.Ctx) error {
	secret := env.GetEnv("ADMIN_SHARED_SECRET", "")
	cookie := c.Cookies("admin_secret")
	if secret == "" || cookie == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(cookie)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}
	return c.Next()
}
