package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/oauth"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	oauth.Setup()

	app.Get("/", controllers.HandleIndex)

	// OAuth sign-in; the callback hands out the bearer token for the API.
	app.Get("/auth/:provider", controllers.HandleAuthLogin)
	app.Get("/auth/:provider/callback", controllers.HandleAuthCallback)
	app.Get("/logout", controllers.HandleAuthLogout)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
