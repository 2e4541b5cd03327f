package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/app/repository"
	"github.com/forgestack/forgestack/internal/pkg/database"
	"github.com/forgestack/forgestack/internal/pkg/orgcontext"
)

// APIKeyAuthMiddleware authenticates requests carrying an organization API
// key and resolves the tenant identity the rate-limit guard classifies on.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if !models.IsValidAPIKeyFormat(apiKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key format"})
		}

		db := database.GetDB()
		if db == nil {
			log.Print("api key middleware: database unavailable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
		}

		hash := models.HashAPIKey(apiKey)
		repo := repository.GetGlobalFactory().GetOrganizationRepository()
		org, err := repo.GetByAPIKeyHash(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		if org.Status != models.OrgStatusActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Organization suspended"})
		}

		plan := org.Plan
		if plan == "" {
			plan = models.PlanFree
		}

		// Refresh last-used timestamp best-effort.
		if err := repo.TouchAPIKeyUsage(org.ID, time.Now()); err != nil {
			log.Printf("failed to update api key usage timestamp for org %d: %v", org.ID, err)
		}

		orgcontext.SetOrgContext(c, orgcontext.OrgContext{
			OrgID:           org.ID,
			Slug:            org.Slug,
			Plan:            plan,
			IsAuthenticated: true,
			LiveMode:        models.IsLiveAPIKey(apiKey),
		})

		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
