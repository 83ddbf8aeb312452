package router

import (
	"github.com/MartinWeidner/CourseFox/app/controllers"
	"github.com/MartinWeidner/CourseFox/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api/v1", middleware.RequireAuth)

	// Viewing progress
	api.Post("/progress", controllers.HandleSaveProgress)
	api.Get("/progress", controllers.HandleListProgress)
	api.Get("/progress/:contentID", controllers.HandleGetProgress)

	// Read-state markers
	api.Post("/alerts/:alertID/dismiss", controllers.HandleDismissAlert)
	api.Post("/comments/:commentID/read", controllers.HandleMarkCommentRead)

	// Library access check
	api.Get("/library/:productID/access", controllers.HandleLibraryAccess)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
