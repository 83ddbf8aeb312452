package router

import (
	"github.com/MartinWeidner/CourseFox/app/controllers"
	"github.com/MartinWeidner/CourseFox/internal/pkg/middleware"
	"github.com/MartinWeidner/CourseFox/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize admin controller with repositories
	controllers.InitializeAdminController()

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Auth
	app.Post("/register", controllers.HandleAuthRegister)
	app.Post("/login", controllers.HandleAuthLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Public catalog
	app.Get("/products", controllers.HandleProductList)
	app.Get("/products/:slug", controllers.HandleProductBySlug)

	// Payment provider webhooks (signature-verified in controller)
	app.Post("/webhooks/payments", controllers.HandlePaymentWebhook)
}

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/users", controllers.HandleAdminUsers)
	adminGroup.Post("/users/hide/:id", controllers.HandleAdminUserHide)
	adminGroup.Get("/users/:id/grants", controllers.HandleAdminUserGrants)
	adminGroup.Get("/users/:id/progress", controllers.HandleAdminUserProgress)

	// Catalog management
	adminGroup.Post("/products", controllers.HandleAdminProductCreate)
	adminGroup.Put("/products/:id", controllers.HandleAdminProductUpdate)

	// Entitlement ledger + reconciliation queue
	adminGroup.Get("/entitlements", controllers.HandleAdminEntitlements)
	adminGroup.Post("/grants", controllers.HandleAdminManualGrant)
	adminGroup.Get("/events/pending", controllers.HandleAdminPendingEvents)
	adminGroup.Post("/events/:eventID/retry", controllers.HandleAdminRetryEvent)
}
