package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/app/repository"
	"github.com/forgestack/forgestack/internal/pkg/env"
)

const (
	requestTimeout      = 15 * time.Second
	maxResponseBodySize = 4096

	// SignatureHeader carries the HMAC of the outbound payload.
	SignatureHeader = "X-ForgeStack-Signature"
	eventHeader     = "X-ForgeStack-Event"
	deliveryHeader  = "X-ForgeStack-Delivery"
)

// Worker executes outbound delivery attempts. One attempt per invocation;
// scheduling between attempts lives in the delivery row's NextAttemptAt.
type Worker struct {
	deliveries  repository.WebhookDeliveryRepository
	endpoints   repository.WebhookEndpointRepository
	client      *http.Client
	maxAttempts int
	breakAfter  int
}

// NewWorker creates a delivery worker. Zero maxAttempts/breakAfter select
// the defaults.
func NewWorker(deliveries repository.WebhookDeliveryRepository, endpoints repository.WebhookEndpointRepository, maxAttempts, breakAfter int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if breakAfter <= 0 {
		breakAfter = DefaultCircuitBreakerThreshold
	}
	return &Worker{
		deliveries:  deliveries,
		endpoints:   endpoints,
		client:      &http.Client{Timeout: requestTimeout},
		maxAttempts: maxAttempts,
		breakAfter:  breakAfter,
	}
}

// NewWorkerFromEnv creates a worker with limits read from the environment.
func NewWorkerFromEnv(deliveries repository.WebhookDeliveryRepository, endpoints repository.WebhookEndpointRepository) *Worker {
	maxAttempts, _ := strconv.Atoi(env.GetEnv("WEBHOOK_MAX_ATTEMPTS", ""))
	breakAfter, _ := strconv.Atoi(env.GetEnv("WEBHOOK_CIRCUIT_BREAKER_THRESHOLD", ""))
	return NewWorker(deliveries, endpoints, maxAttempts, breakAfter)
}

// AttemptDelivery performs the next attempt for one delivery. Terminal
// deliveries and disabled endpoints are no-ops. The returned error is nil
// even when the attempt itself failed; retry timing is recorded on the row,
// not driven by queue retries.
func (w *Worker) AttemptDelivery(ctx context.Context, deliveryID uint) error {
	delivery, err := w.deliveries.GetByID(deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("delivery: record %d not found", deliveryID)
		}
		return err
	}
	if delivery.Status != models.DeliveryStatusPending {
		log.Infof("[Delivery] delivery %d already %s, skipping", delivery.ID, delivery.Status)
		return nil
	}

	endpoint, err := w.endpoints.GetByID(delivery.EndpointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No attempt was made; the recorded attempt count stays as-is.
			return w.deliveries.MarkFailed(delivery.ID, delivery.AttemptNumber, 0, "", "endpoint no longer exists")
		}
		return err
	}
	if !endpoint.Enabled {
		return w.deliveries.MarkFailed(delivery.ID, delivery.AttemptNumber, 0, "", "endpoint disabled")
	}

	attemptNumber := delivery.AttemptNumber + 1
	status, body, attemptErr := w.post(ctx, endpoint, delivery)

	if attemptErr == nil && status >= 200 && status < 300 {
		if err := w.deliveries.MarkDelivered(delivery.ID, attemptNumber, status, body); err != nil {
			return err
		}
		if err := w.endpoints.ResetFailures(endpoint.ID); err != nil {
			log.Errorf("[Delivery] failed to reset failure counter for endpoint %d: %v", endpoint.ID, err)
		}
		log.Infof("[Delivery] delivery %d succeeded on attempt %d (status %d)", delivery.ID, attemptNumber, status)
		return nil
	}

	errMsg := fmt.Sprintf("unexpected status %d", status)
	if attemptErr != nil {
		errMsg = attemptErr.Error()
	}

	if attemptNumber >= w.maxAttempts {
		log.Warnf("[Delivery] delivery %d permanently failed after %d attempts: %s", delivery.ID, attemptNumber, errMsg)
		if err := w.deliveries.MarkFailed(delivery.ID, attemptNumber, status, body, errMsg); err != nil {
			return err
		}
		return w.recordEndpointFailure(endpoint)
	}

	nextAttemptAt := time.Now().Add(BackoffDelay(attemptNumber + 1))
	log.Warnf("[Delivery] delivery %d attempt %d failed (%s), next attempt at %s", delivery.ID, attemptNumber, errMsg, nextAttemptAt.Format(time.RFC3339))
	if err := w.deliveries.RecordAttempt(delivery.ID, attemptNumber, status, body, errMsg, nextAttemptAt); err != nil {
		return err
	}
	return w.recordEndpointFailure(endpoint)
}

// recordEndpointFailure bumps the endpoint's consecutive-failure counter and
// disables it once the circuit-breaker threshold is reached.
func (w *Worker) recordEndpointFailure(endpoint *models.WebhookEndpoint) error {
	failures, err := w.endpoints.RecordFailure(endpoint.ID)
	if err != nil {
		return err
	}
	if failures >= w.breakAfter {
		log.Warnf("[Delivery] endpoint %d reached %d consecutive failures, disabling", endpoint.ID, failures)
		return w.endpoints.Disable(endpoint.ID, fmt.Sprintf("circuit breaker: %d consecutive failures", failures))
	}
	return nil
}

func (w *Worker) post(ctx context.Context, endpoint *models.WebhookEndpoint, delivery *models.WebhookDelivery) (int, string, error) {
	payload := []byte(delivery.PayloadJSON)
	signature, err := SignPayload(payload, endpoint.Secret)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(eventHeader, delivery.EventType)
	req.Header.Set(deliveryHeader, strconv.FormatUint(uint64(delivery.ID), 10))

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("delivery: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if readErr != nil {
		log.Warnf("[Delivery] failed to read response body from %s: %v", endpoint.URL, readErr)
	}
	return resp.StatusCode, strings.ToValidUTF8(string(body), ""), nil
}
