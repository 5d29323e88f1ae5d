package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/middleware"
)

type ApiRouter struct {
	svc *billing.Service
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Webhooks sit outside the general limiter: the provider's retry
	// behavior must never be throttled, and the route is signature-gated.
	app.Post("/api/webhooks/dodo", controllers.HandleDodoWebhook(h.svc))

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        100,
		Expiration: 15 * time.Minute,
	}))

	payments := api.Group("/payments", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
	}))
	payments.Post("/create-checkout", controllers.HandleCreateCheckout(h.svc))

	user := api.Group("/user", middleware.BearerAuthMiddleware())
	user.Get("/profile", controllers.HandleUserProfile)
	user.Get("/subscriptions", controllers.HandleUserSubscriptions(h.svc))

	subscriptions := api.Group("/subscriptions", middleware.BearerAuthMiddleware())
	subscriptions.Post("/cancel", controllers.HandleCancelSubscription(h.svc))
}

func NewApiRouter(svc *billing.Service) *ApiRouter {
	return &ApiRouter{svc: svc}
}
