package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/forgestack/forgestack/internal/pkg/webhook"
)

// Provider signature header names. The raw body must reach the verifier
// unparsed; re-serializing invalidates the signature.
var providerSignatureHeaders = map[string]string{
	webhook.ProviderStripe: "Stripe-Signature",
}

// WebhookController handles inbound provider webhooks. Public and
// unauthenticated; authenticity comes from the signature.
type WebhookController struct {
	service *webhook.Service
}

// NewWebhookController creates the webhook ingestion controller.
func NewWebhookController(service *webhook.Service) *WebhookController {
	return &WebhookController{service: service}
}

// HandleIncoming accepts POST /webhooks/:provider. The provider must see a
// fast synchronous ack; processing happens on the queue.
func (wc *WebhookController) HandleIncoming(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	headerName, ok := providerSignatureHeaders[provider]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"statusCode": fiber.StatusNotFound,
			"message":    "Not Found",
			"error":      "Unknown webhook provider",
		})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	if len(rawBody) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"statusCode": fiber.StatusBadRequest,
			"message":    "Bad Request",
			"error":      "Missing request body",
		})
	}

	signature := strings.TrimSpace(c.Get(headerName))
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"statusCode": fiber.StatusBadRequest,
			"message":    "Bad Request",
			"error":      "Missing signature header",
		})
	}

	result, err := wc.service.HandleIncomingWebhook(c.UserContext(), provider, rawBody, signature)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"statusCode": fiber.StatusBadRequest,
				"message":    "Bad Request",
				"error":      "Invalid webhook signature",
			})
		}
		if errors.Is(err, webhook.ErrUnknownProvider) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"statusCode": fiber.StatusNotFound,
				"message":    "Not Found",
				"error":      "Unknown webhook provider",
			})
		}
		// Infrastructure fault. The provider retries, the idempotency
		// check absorbs the duplicates.
		log.Errorf("[Webhook] ingestion failed for provider %s: %v", provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"statusCode": fiber.StatusInternalServerError,
			"message":    "Internal Server Error",
			"error":      "Webhook could not be stored",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"received": true,
		"eventId":  result.EventID,
	})
}
