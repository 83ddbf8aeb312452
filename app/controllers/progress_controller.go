package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MartinWeidner/CourseFox/internal/pkg/database"
	"github.com/MartinWeidner/CourseFox/internal/pkg/entitlement"
	"github.com/MartinWeidner/CourseFox/internal/pkg/progress"
	"github.com/MartinWeidner/CourseFox/internal/pkg/usercontext"
)

// HandleSaveProgress stores the latest watch position for the logged-in user.
// The client retries on 5xx; the upsert makes that harmless.
func HandleSaveProgress(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	type progressInput struct {
		ContentID      uint `json:"content_id"`
		ElapsedSeconds int  `json:"elapsed_seconds"`
		TotalSeconds   int  `json:"total_seconds"`
	}
	var in progressInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker := progress.NewTrackerFromDB(database.GetDB())
	percent, completed, err := tracker.RecordProgress(ctx, userCtx.UserID, in.ContentID, in.ElapsedSeconds, in.TotalSeconds)
	if err != nil {
		if errors.Is(err, progress.ErrInvalidInput) {
			log.Printf("progress save: rejected invalid input from user %d: content=%d elapsed=%d total=%d",
				userCtx.UserID, in.ContentID, in.ElapsedSeconds, in.TotalSeconds)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "save_failed"})
	}

	return c.JSON(fiber.Map{"ok": true, "percent": percent, "completed": completed})
}

// HandleGetProgress returns the stored watch state for one content item.
func HandleGetProgress(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	contentID, err := c.ParamsInt("contentID")
	if err != nil || contentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_content_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker := progress.NewTrackerFromDB(database.GetDB())
	rec, err := tracker.GetProgress(ctx, userCtx.UserID, uint(contentID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	if rec == nil {
		return c.JSON(fiber.Map{"percent": 0, "completed": false})
	}
	return c.JSON(rec)
}

// HandleListProgress returns all stored watch states for the logged-in user,
// most recently updated first.
func HandleListProgress(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker := progress.NewTrackerFromDB(database.GetDB())
	recs, err := tracker.ListProgress(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	return c.JSON(fiber.Map{"progress": recs})
}

// HandleDismissAlert marks an alert as read. Repeat dismissals succeed.
func HandleDismissAlert(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	alertID, err := c.ParamsInt("alertID")
	if err != nil || alertID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_alert_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker := progress.NewTrackerFromDB(database.GetDB())
	dismissed, err := tracker.DismissAlert(ctx, uint(alertID), userCtx.UserID)
	if err != nil {
		if errors.Is(err, progress.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "dismiss_failed"})
	}
	return c.JSON(fiber.Map{"dismissed": dismissed})
}

// HandleMarkCommentRead flags a comment as read for the logged-in user.
func HandleMarkCommentRead(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	commentID, err := c.ParamsInt("commentID")
	if err != nil || commentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_comment_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker := progress.NewTrackerFromDB(database.GetDB())
	read, err := tracker.MarkCommentRead(ctx, uint(commentID), userCtx.UserID)
	if err != nil {
		if errors.Is(err, progress.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mark_failed"})
	}
	return c.JSON(fiber.Map{"read": read})
}

// HandleLibraryAccess reports whether the logged-in user may open a product.
func HandleLibraryAccess(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	productID, err := c.ParamsInt("productID")
	if err != nil || productID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_product_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ledger := entitlement.NewLedgerFromDB(database.GetDB())
	hasAccess, err := ledger.HasAccess(ctx, userCtx.UserID, uint(productID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	return c.JSON(fiber.Map{"product_id": productID, "access": hasAccess})
}
