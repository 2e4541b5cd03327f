package jobqueue

import (
	"context"
	"fmt"

	"github.com/forgestack/forgestack/internal/pkg/webhook"
)

// NewWebhookProcessProcessor returns the processor for incoming webhook
// event jobs. The payload references a persisted event record by id; a
// missing or malformed reference is a permanent failure.
func NewWebhookProcessProcessor(svc *webhook.Service) Processor {
	return func(ctx context.Context, job *Job) error {
		recordID, err := payloadUint(job.Payload, "record_id")
		if err != nil {
			return fmt.Errorf("webhook process job %s: %w", job.ID, err)
		}
		return svc.ProcessWebhookEvent(ctx, recordID)
	}
}

// payloadUint extracts an unsigned integer from a JSON-decoded job payload.
// Numbers round-trip through JSON as float64.
func payloadUint(payload map[string]interface{}, key string) (uint, error) {
	raw, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("payload missing %q", key)
	}
	switch v := raw.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("payload %q is negative", key)
		}
		return uint(v), nil
	case uint:
		return v, nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("payload %q is negative", key)
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("payload %q has unexpected type %T", key, raw)
	}
}
