package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MartinWeidner/CourseFox/app/models"
	"github.com/MartinWeidner/CourseFox/app/repository"
	"github.com/MartinWeidner/CourseFox/internal/pkg/database"
	"github.com/MartinWeidner/CourseFox/internal/pkg/session"
)

// HandleAuthRegister creates a new account. The email is stored normalized
// so later payment-event matching is case-insensitive.
func HandleAuthRegister(c *fiber.Ctx) error {
	type registerInput struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var in registerInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	user, err := models.CreateUser(in.Name, in.Email, in.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := repository.GetGlobalRepositories().User.Create(ctx, user); err != nil {
		// almost always the unique email index
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "user_id": user.ID})
}

// HandleAuthLogin authenticates a user session from email + password.
func HandleAuthLogin(c *fiber.Ctx) error {
	type loginInput struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var in loginInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.User
	// notice: in production you should not inform the user
	// with detailed messages about login failures
	result := database.GetDB().WithContext(ctx).Where("LOWER(email) = ?", models.NormalizeEmail(in.Email)).First(&user)
	if result.Error != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login_failed"})
	}
	if !models.CheckPasswordHash(in.Password, user.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login_failed"})
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login_failed"})
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session_failed"})
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_ROLE, user.Role)
	sess.Set(USER_IS_ADMIN, user.IsAdmin())
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session_failed"})
	}

	database.GetDB().WithContext(ctx).Model(&user).Update("last_login_at", time.Now())

	return c.JSON(fiber.Map{"ok": true, "user_id": user.ID, "role": user.Role})
}

// HandleAuthLogout destroys the current session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(FROM_PROTECTED, false)
	return c.JSON(fiber.Map{"ok": true})
}
