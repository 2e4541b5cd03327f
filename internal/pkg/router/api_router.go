package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/forgestack/forgestack/app/controllers"
	"github.com/forgestack/forgestack/internal/pkg/middleware"
	"github.com/forgestack/forgestack/internal/pkg/ratelimit"
)

// ApiRouter wires the public API surface: webhook ingestion, endpoint
// management and health.
type ApiRouter struct {
	limiter          *ratelimit.Service
	webhooks         *controllers.WebhookController
	webhookEndpoints *controllers.WebhookEndpointController
}

// NewApiRouter creates the API router.
func NewApiRouter(limiter *ratelimit.Service, webhooks *controllers.WebhookController, webhookEndpoints *controllers.WebhookEndpointController) *ApiRouter {
	return &ApiRouter{
		limiter:          limiter,
		webhooks:         webhooks,
		webhookEndpoints: webhookEndpoints,
	}
}

// RoutePolicies is the explicit per-route rate-limit policy table, resolved
// by the guard at request time. Route-level entries override the default
// classification.
func RoutePolicies() map[string]middleware.RoutePolicy {
	return map[string]middleware.RoutePolicy{
		"GET /healthz": {Skip: true},
	}
}

func (r *ApiRouter) InstallRouter(app *fiber.App) {
	guard := middleware.RateLimitGuard(r.limiter, RoutePolicies())

	app.Get("/healthz", guard, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public, unauthenticated, IP-limited; authenticity comes from the
	// provider signature over the raw body.
	app.Post("/webhooks/:provider", guard, r.webhooks.HandleIncoming)

	// Tenant API: the API key middleware resolves the org first so the
	// guard classifies by plan instead of IP.
	api := app.Group("/api/v1", middleware.APIKeyAuthMiddleware(), guard)
	api.Post("/webhook-endpoints", r.webhookEndpoints.Create)
	api.Get("/webhook-endpoints", r.webhookEndpoints.List)
	api.Delete("/webhook-endpoints/:id", r.webhookEndpoints.Delete)
	api.Get("/webhook-endpoints/:id/deliveries", r.webhookEndpoints.Deliveries)
}
