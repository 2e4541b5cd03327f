package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// DefaultSignatureTolerance bounds how old a signed timestamp may be before
// the signature is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// Verifier authenticates an inbound webhook over the raw, unparsed request
// body and extracts the provider event identity.
type Verifier interface {
	Provider() string
	Verify(rawBody []byte, signatureHeader string) (*Event, error)
}

// StripeVerifier checks the Stripe-Signature scheme: a header of the form
// "t=<unix>,v1=<hex>" where v1 is HMAC-SHA256 over "<t>.<body>" keyed with
// the endpoint secret.
type StripeVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewStripeVerifier creates a verifier for Stripe webhook signatures. The
// general API secret must be present; a missing webhook signing secret is a
// startup warning, not a construction error, since every verification will
// then fail while the API key stays usable elsewhere.
func NewStripeVerifier(apiSecret, webhookSecret string) (*StripeVerifier, error) {
	if strings.TrimSpace(apiSecret) == "" {
		return nil, fmt.Errorf("%w: STRIPE_API_SECRET", ErrMissingSecret)
	}
	if strings.TrimSpace(webhookSecret) == "" {
		log.Warn("[Webhook] STRIPE_WEBHOOK_SECRET not set, all stripe signature checks will fail")
	}
	return &StripeVerifier{
		secret:    strings.TrimSpace(webhookSecret),
		tolerance: DefaultSignatureTolerance,
		now:       time.Now,
	}, nil
}

func (v *StripeVerifier) Provider() string {
	return ProviderStripe
}

// Verify authenticates rawBody against the signature header. The body must
// be the exact bytes received; re-serializing a parsed JSON document
// invalidates the signature.
func (v *StripeVerifier) Verify(rawBody []byte, signatureHeader string) (*Event, error) {
	if v.secret == "" {
		return nil, ErrInvalidSignature
	}

	timestamp, candidates, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	valid := false
	for _, candidate := range candidates {
		decoded, decodeErr := hex.DecodeString(candidate)
		if decodeErr != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return parseStripeEvent(rawBody)
}

// parseSignatureHeader splits "t=...,v1=...,v1=..." into the timestamp and
// all v1 signature candidates.
func parseSignatureHeader(header string) (int64, []string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, nil, fmt.Errorf("%w: empty signature header", ErrInvalidSignature)
	}

	var (
		timestamp  int64
		candidates []string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed signature header", ErrInvalidSignature)
	}
	return timestamp, candidates, nil
}

func parseStripeEvent(rawBody []byte) (*Event, error) {
	var payload struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: unparsable payload", ErrInvalidSignature)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrInvalidSignature)
	}
	return &Event{
		Provider:        ProviderStripe,
		ProviderEventID: payload.ID,
		EventType:       payload.Type,
		RawPayload:      rawBody,
	}, nil
}
