package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/picshelf/PicShelf/app/controllers"
	"github.com/picshelf/PicShelf/internal/pkg/middleware"
)

type ApiRouter struct{}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (r *ApiRouter) InstallRouter(app *fiber.App) {
	v1 := app.Group("/api/v1")

	v1.Get("/entitlement", middleware.RequireAPISessionAuth, controllers.HandleEntitlement)
}
