package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/app/repository"
)

// FanOut creates outbound deliveries for a tenant's subscribed endpoints.
// Implemented by the delivery dispatcher.
type FanOut interface {
	FanOut(ctx context.Context, orgID uint, eventType, eventID, payloadJSON string) (int, error)
}

// StripeHandler is the async processor for verified stripe events. It
// resolves the tenant from payload metadata, stamps the event record and
// fans the event out to the org's outbound endpoints.
type StripeHandler struct {
	orgs   repository.OrganizationRepository
	events repository.WebhookEventRepository
	fanout FanOut
}

// NewStripeHandler wires the stripe event processor.
func NewStripeHandler(orgs repository.OrganizationRepository, events repository.WebhookEventRepository, fanout FanOut) *StripeHandler {
	return &StripeHandler{orgs: orgs, events: events, fanout: fanout}
}

// stripeEnvelope is the subset of the stripe payload the handler needs:
// the object metadata carrying our org slug.
type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleEvent resolves the org and fans out. Events without tenant metadata
// are processed as a no-op; an unknown org slug is logged and skipped rather
// than retried, since retrying cannot make the tenant appear.
func (h *StripeHandler) HandleEvent(ctx context.Context, event *models.IncomingWebhookEvent) error {
	var envelope stripeEnvelope
	if err := json.Unmarshal([]byte(event.PayloadJSON), &envelope); err != nil {
		return fmt.Errorf("stripe handler: unparsable payload for event %d: %w", event.ID, err)
	}

	slug := strings.TrimSpace(envelope.Data.Object.Metadata["org"])
	if slug == "" {
		log.Infof("[Webhook] stripe event %d (%s) carries no org metadata, nothing to fan out", event.ID, event.EventType)
		return nil
	}

	org, err := h.orgs.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Webhook] stripe event %d references unknown org %q, skipping", event.ID, slug)
			return nil
		}
		return err
	}

	if err := h.events.SetOrgID(event.ID, org.ID); err != nil {
		return err
	}

	created, err := h.fanout.FanOut(ctx, org.ID, event.EventType, event.ProviderEventID, event.PayloadJSON)
	if err != nil {
		return err
	}
	log.Infof("[Webhook] stripe event %d fanned out to %d endpoints of org %d", event.ID, created, org.ID)
	return nil
}
