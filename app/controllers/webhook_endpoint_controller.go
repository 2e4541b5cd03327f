package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/app/repository"
	"github.com/forgestack/forgestack/internal/pkg/orgcontext"
)

// CreateEndpointRequest is the payload for registering an outbound webhook
// endpoint. Destinations must be HTTPS.
type CreateEndpointRequest struct {
	URL    string   `json:"url" validate:"required,url,startswith=https://"`
	Events []string `json:"events" validate:"required,min=1,dive,min=1"`
}

// WebhookEndpointController manages an org's outbound webhook endpoints.
type WebhookEndpointController struct {
	endpoints  repository.WebhookEndpointRepository
	deliveries repository.WebhookDeliveryRepository
	validate   *validator.Validate
}

// NewWebhookEndpointController creates the endpoint management controller.
func NewWebhookEndpointController(endpoints repository.WebhookEndpointRepository, deliveries repository.WebhookDeliveryRepository) *WebhookEndpointController {
	return &WebhookEndpointController{
		endpoints:  endpoints,
		deliveries: deliveries,
		validate:   validator.New(),
	}
}

// Create registers a new endpoint for the authenticated org and returns the
// generated signing secret once.
func (ec *WebhookEndpointController) Create(c *fiber.Ctx) error {
	octx := orgcontext.GetOrgContext(c)
	if !octx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
	}

	var req CreateEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}
	if err := ec.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "url must be HTTPS and at least one event type is required"})
	}

	secret, err := generateEndpointSecret()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Secret generation failed"})
	}

	endpoint := &models.WebhookEndpoint{
		OrgID:   octx.OrgID,
		URL:     req.URL,
		Secret:  secret,
		Enabled: true,
	}
	if err := endpoint.SetEvents(req.Events); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid event list"})
	}
	if err := ec.endpoints.Create(endpoint); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Endpoint could not be stored"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      endpoint.ID,
		"url":     endpoint.URL,
		"events":  endpoint.Events(),
		"enabled": endpoint.Enabled,
		// Shown once at creation; only the HMAC of outbound payloads
		// proves possession afterwards.
		"secret": secret,
	})
}

// List returns the org's endpoints without secrets.
func (ec *WebhookEndpointController) List(c *fiber.Ctx) error {
	octx := orgcontext.GetOrgContext(c)
	if !octx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
	}

	endpoints, err := ec.endpoints.ListByOrg(octx.OrgID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Endpoint lookup failed"})
	}

	items := make([]fiber.Map, 0, len(endpoints))
	for i := range endpoints {
		items = append(items, fiber.Map{
			"id":                   endpoints[i].ID,
			"url":                  endpoints[i].URL,
			"events":               endpoints[i].Events(),
			"enabled":              endpoints[i].Enabled,
			"consecutive_failures": endpoints[i].ConsecutiveFailures,
			"disabled_reason":      endpoints[i].DisabledReason,
		})
	}
	return c.JSON(fiber.Map{"endpoints": items})
}

// Delete removes one of the org's endpoints.
func (ec *WebhookEndpointController) Delete(c *fiber.Ctx) error {
	octx := orgcontext.GetOrgContext(c)
	if !octx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid endpoint id"})
	}

	endpoint, err := ec.endpoints.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Endpoint not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Endpoint lookup failed"})
	}
	if endpoint.OrgID != octx.OrgID {
		// Cross-tenant probing gets the same answer as a missing row.
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Endpoint not found"})
	}

	if err := ec.endpoints.Delete(endpoint.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Endpoint could not be deleted"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Deliveries lists recent delivery attempts for one of the org's endpoints.
func (ec *WebhookEndpointController) Deliveries(c *fiber.Ctx) error {
	octx := orgcontext.GetOrgContext(c)
	if !octx.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid endpoint id"})
	}
	endpoint, err := ec.endpoints.GetByID(uint(id))
	if err != nil || endpoint.OrgID != octx.OrgID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Endpoint not found"})
	}

	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	deliveries, err := ec.deliveries.ListByEndpoint(endpoint.ID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Delivery lookup failed"})
	}
	return c.JSON(fiber.Map{"deliveries": deliveries})
}

func generateEndpointSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
