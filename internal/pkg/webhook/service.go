package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/app/repository"
)

// ProcessJobPayload references a persisted event record from a queue job.
type ProcessJobPayload struct {
	RecordID        uint   `json:"record_id"`
	Provider        string `json:"provider"`
	EventType       string `json:"event_type"`
	ProviderEventID string `json:"provider_event_id"`
}

// ToMap converts the payload to a map for queue storage.
func (p ProcessJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"record_id":         p.RecordID,
		"provider":          p.Provider,
		"event_type":        p.EventType,
		"provider_event_id": p.ProviderEventID,
	}
}

// Enqueuer hands processing jobs to the background queue. Fire-and-forget;
// delivery and ordering are the queue's responsibility.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload map[string]interface{}) (string, error)
}

// Handler processes one verified, persisted event for a single provider.
type Handler interface {
	HandleEvent(ctx context.Context, event *models.IncomingWebhookEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *models.IncomingWebhookEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event *models.IncomingWebhookEvent) error {
	return f(ctx, event)
}

// Service orchestrates verify, deduplicate, persist and enqueue for inbound
// webhooks, and drives asynchronous processing on the worker side.
type Service struct {
	repo      repository.WebhookEventRepository
	enqueuer  Enqueuer
	verifiers map[string]Verifier
	handlers  map[string]Handler
}

// NewService creates a webhook ingestion service. Verifiers and handlers are
// registered per provider; dispatch on an unregistered provider is an error,
// never a silent fallthrough.
func NewService(repo repository.WebhookEventRepository, enqueuer Enqueuer) *Service {
	return &Service{
		repo:      repo,
		enqueuer:  enqueuer,
		verifiers: make(map[string]Verifier),
		handlers:  make(map[string]Handler),
	}
}

// RegisterVerifier wires a signature verifier for its provider.
func (s *Service) RegisterVerifier(v Verifier) {
	s.verifiers[v.Provider()] = v
}

// RegisterHandler wires the async processing handler for one provider.
func (s *Service) RegisterHandler(provider string, h Handler) {
	s.handlers[strings.ToLower(provider)] = h
}

// HandleIncomingWebhook runs the synchronous ingestion path:
// verify signature, deduplicate by (provider, event id), persist, enqueue.
// Duplicates return the already-stored record with no new side effects so
// provider retry storms stay cheap.
func (s *Service) HandleIncomingWebhook(ctx context.Context, provider string, rawBody []byte, signatureHeader string) (*IngestResult, error) {
	verifier, ok := s.verifiers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	event, err := verifier.Verify(rawBody, signatureHeader)
	if err != nil {
		return nil, err
	}

	// Cheap pre-check; the unique index on (provider, provider_event_id)
	// remains the real guard against racing duplicate deliveries.
	existing, err := s.repo.FindByProviderAndEventID(event.Provider, event.ProviderEventID)
	if err == nil {
		return &IngestResult{EventID: existing.ProviderEventID, RecordID: existing.ID, Duplicate: true}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record := &models.IncomingWebhookEvent{
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.EventType,
		PayloadJSON:     string(event.RawPayload),
		Signature:       signatureHeader,
		Verified:        true,
		// OrgID stays nil; the async processor resolves the tenant from
		// payload contents.
	}
	created, stored, err := s.repo.CreateIfNotExists(record)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the insert race to a concurrent duplicate delivery.
		return &IngestResult{EventID: stored.ProviderEventID, RecordID: stored.ID, Duplicate: true}, nil
	}

	payload := ProcessJobPayload{
		RecordID:        stored.ID,
		Provider:        stored.Provider,
		EventType:       stored.EventType,
		ProviderEventID: stored.ProviderEventID,
	}
	if _, err := s.enqueuer.Enqueue(ctx, payload.ToMap()); err != nil {
		return nil, fmt.Errorf("webhook: enqueue processing job: %w", err)
	}

	return &IngestResult{EventID: stored.ProviderEventID, RecordID: stored.ID}, nil
}

// ProcessWebhookEvent is invoked by the queue worker, outside any HTTP
// request. A missing record or unregistered provider is a consistency bug
// and surfaces as an error; duplicate job delivery is an idempotent no-op.
func (s *Service) ProcessWebhookEvent(ctx context.Context, recordID uint) error {
	event, err := s.repo.FindByID(recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrEventNotFound, recordID)
		}
		return err
	}

	if event.ProcessedAt != nil {
		log.Infof("[Webhook] event %d (%s/%s) already processed, skipping", event.ID, event.Provider, event.ProviderEventID)
		return nil
	}

	if !event.Verified {
		// Unreachable for events persisted by HandleIncomingWebhook; guards
		// against future providers that persist before verification.
		log.Warnf("[Webhook] event %d (%s/%s) not verified, skipping", event.ID, event.Provider, event.ProviderEventID)
		return nil
	}

	handler, ok := s.handlers[event.Provider]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, event.Provider)
	}

	if err := handler.HandleEvent(ctx, event); err != nil {
		if markErr := s.repo.MarkAsFailed(event.ID, err.Error()); markErr != nil {
			log.Errorf("[Webhook] failed to record processing error for event %d: %v", event.ID, markErr)
		}
		if incErr := s.repo.IncrementRetryCount(event.ID); incErr != nil {
			log.Errorf("[Webhook] failed to bump retry count for event %d: %v", event.ID, incErr)
		}
		return err
	}

	return s.repo.MarkAsProcessed(event.ID)
}
