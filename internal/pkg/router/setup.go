package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all route groups. The billing service is the one
// injected dependency; it carries the provider client constructed at boot.
func InstallRouter(app *fiber.App, svc *billing.Service) {
	setup(app, NewHttpRouter(), NewApiRouter(svc))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
