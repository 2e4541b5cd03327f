package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all route groups. The API router carries the
// rate-limit guard; webhook ingestion sits behind the IP-scoped public quota
// while health checks carry a skip policy.
func InstallRouter(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
}
