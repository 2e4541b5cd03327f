package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignPayload generates the outbound delivery signature header value:
// "sha256=<hex hmac-sha256 of the payload keyed with the endpoint secret>".
func SignPayload(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("delivery: endpoint secret cannot be empty")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil))), nil
}
