package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/MartinWeidner/CourseFox/app/models"
	"github.com/MartinWeidner/CourseFox/app/repository"
	"github.com/MartinWeidner/CourseFox/internal/pkg/database"
	"github.com/MartinWeidner/CourseFox/internal/pkg/entitlement"
	"github.com/MartinWeidner/CourseFox/internal/pkg/progress"
	"github.com/MartinWeidner/CourseFox/internal/pkg/reconcile"
)

var adminRepos *repository.Repositories
var validate = validator.New()

// InitializeAdminController wires the admin controller with repositories.
func InitializeAdminController() {
	adminRepos = repository.GetGlobalRepositories()
}

// HandleAdminUsers lists visible users (soft-deleted and hidden excluded).
func HandleAdminUsers(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users, err := adminRepos.User.List(ctx, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	total, err := adminRepos.User.Count(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	return c.JSON(fiber.Map{"users": users, "total": total})
}

// HandleAdminUserHide sets or clears the hidden flag on a user account.
func HandleAdminUserHide(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_user_id"})
	}
	hidden := c.QueryBool("hidden", true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := adminRepos.User.SetHidden(ctx, uint(id), hidden); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "hidden": hidden})
}

// HandleAdminEntitlements lists recent grants, newest first, for visible users.
func HandleAdminEntitlements(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grants, err := adminRepos.Entitlement.ListRecent(ctx, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}

	type row struct {
		Entitlement models.Entitlement `json:"entitlement"`
		UserName    string             `json:"user_name"`
		UserEmail   string             `json:"user_email"`
	}
	out := make([]row, 0, len(grants))
	for _, g := range grants {
		out = append(out, row{Entitlement: g.Entitlement, UserName: g.User.Name, UserEmail: g.User.Email})
	}
	return c.JSON(fiber.Map{"entitlements": out})
}

// HandleAdminPendingEvents exposes the queue of payment events that were seen
// but not fully processed (unresolved identity, conflicts).
func HandleAdminPendingEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := reconcile.NewPipelineFromDB(database.GetDB())
	events, err := pipeline.ListPending(ctx, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	return c.JSON(fiber.Map{"pending": events})
}

// HandleAdminRetryEvent re-drives a pending event after manual intervention
// (e.g. the operator linked the buyer's account).
func HandleAdminRetryEvent(c *fiber.Ctx) error {
	eventID := strings.TrimSpace(c.Params("eventID"))
	if eventID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_event_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pipeline := reconcile.NewPipelineFromDB(database.GetDB())
	result, err := pipeline.Retry(ctx, models.PaymentProviderStripe, eventID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "retry_failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "outcome": result.Outcome, "user_id": result.UserID})
}

// HandleAdminManualGrant records an administrative grant for a user/product
// pair, as a degenerate event with a synthetic id.
func HandleAdminManualGrant(c *fiber.Ctx) error {
	type grantInput struct {
		UserID    uint `json:"user_id"`
		ProductID uint `json:"product_id"`
		AdminID   uint `json:"admin_id"`
	}
	var in grantInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if in.UserID == 0 || in.ProductID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and product_id are required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ledger := entitlement.NewLedgerFromDB(database.GetDB())
	eventID, created, err := ledger.GrantManual(ctx, in.UserID, in.ProductID, in.AdminID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "grant_failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "created": created, "event_id": eventID})
}

// HandleAdminUserProgress lists a user's progress records. Soft-deleted and
// hidden users are not exposed here, same as every other admin listing.
func HandleAdminUserProgress(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_user_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := adminRepos.User.GetByID(ctx, uint(id))
	if err != nil || user.Hidden {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	tracker := progress.NewTrackerFromDB(database.GetDB())
	recs, err := tracker.ListProgress(ctx, uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	return c.JSON(fiber.Map{"progress": recs})
}

// HandleAdminProductCreate adds a catalog entry.
func HandleAdminProductCreate(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	product.ID = 0
	if err := validate.Struct(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := adminRepos.Product.Create(ctx, &product); err != nil {
		// almost always the unique slug index
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "slug_taken"})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleAdminProductUpdate replaces a catalog entry.
func HandleAdminProductUpdate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_product_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	product, err := adminRepos.Product.GetByID(ctx, uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if err := c.BodyParser(product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	product.ID = uint(id)
	if err := validate.Struct(product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input"})
	}

	if err := adminRepos.Product.Update(ctx, product); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	return c.JSON(product)
}

// HandleAdminUserGrants lists all grants of one user, newest first.
func HandleAdminUserGrants(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_user_id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := adminRepos.User.GetByID(ctx, uint(id))
	if err != nil || user.Hidden {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	grants, err := adminRepos.Entitlement.ListByUser(ctx, uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	return c.JSON(fiber.Map{"entitlements": grants})
}
