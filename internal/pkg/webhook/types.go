package webhook

import "errors"

// Providers with registered verifiers/handlers.
const (
	ProviderStripe = "stripe"
)

// Event is the verified, typed result of signature verification.
type Event struct {
	Provider        string
	ProviderEventID string
	EventType       string
	RawPayload      []byte
}

// IngestResult is returned to the HTTP caller for the synchronous ack.
type IngestResult struct {
	EventID   string `json:"eventId"`
	RecordID  uint   `json:"-"`
	Duplicate bool   `json:"-"`
}

var (
	// ErrInvalidSignature covers mismatched and malformed signatures.
	// Surfaced as HTTP 400; the provider retries per its own policy.
	ErrInvalidSignature = errors.New("webhook: invalid signature")

	// ErrMissingSecret is a fatal configuration error at construction time.
	ErrMissingSecret = errors.New("webhook: signing secret not configured")

	// ErrUnknownProvider indicates missing deployment wiring, not a
	// transient condition.
	ErrUnknownProvider = errors.New("webhook: unknown provider")

	// ErrEventNotFound indicates a processing job referenced a record that
	// does not exist. Consistency bug, never retried.
	ErrEventNotFound = errors.New("webhook: event record not found")
)
