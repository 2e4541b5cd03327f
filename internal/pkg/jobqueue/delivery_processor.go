package jobqueue

import (
	"context"
	"fmt"

	"github.com/forgestack/forgestack/internal/pkg/delivery"
)

// NewWebhookDeliveryProcessor returns the processor for outbound delivery
// jobs. Each job is one attempt; retry timing lives on the delivery row.
func NewWebhookDeliveryProcessor(worker *delivery.Worker) Processor {
	return func(ctx context.Context, job *Job) error {
		deliveryID, err := payloadUint(job.Payload, "delivery_id")
		if err != nil {
			return fmt.Errorf("webhook delivery job %s: %w", job.ID, err)
		}
		return worker.AttemptDelivery(ctx, deliveryID)
	}
}
