package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/picshelf/PicShelf/app/controllers"
	"github.com/picshelf/PicShelf/internal/pkg/middleware"
	"github.com/picshelf/PicShelf/internal/pkg/session"
)

type HttpRouter struct{}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	session.NewSessionStore()
	app.Use(middleware.UserContextMiddleware)

	// Guest checkout flow
	app.Post("/checkout/guest", controllers.HandleGuestCheckout)
	app.Get("/checkout/success", controllers.HandleCheckoutSuccess)
	app.Get("/checkout/cancel", controllers.HandleCheckoutCancel)
	app.Get("/checkout/error", controllers.HandleCheckoutError)

	// Authenticated checkout / portal
	app.Post("/user/billing/checkout", middleware.RequireAuth, controllers.HandleCheckout)

	// Provider webhooks (no CSRF, signature-verified in the service)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
