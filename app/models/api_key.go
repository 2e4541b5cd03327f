package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// API key prefixes distinguish live and test credentials at a glance and let
// support strip keys from logs without decoding them.
const (
	APIKeyPrefixLive = "fs_live_"
	APIKeyPrefixTest = "fs_test_"

	apiKeyRandomBytes = 24
)

// HashAPIKey returns the hex SHA-256 digest used for storage and lookup.
// Raw keys are never persisted.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates a new random API key with the environment prefix.
func GenerateAPIKey(live bool) (string, error) {
	prefix := APIKeyPrefixTest
	if live {
		prefix = APIKeyPrefixLive
	}
	b := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}

// IsValidAPIKeyFormat reports whether the key carries a known prefix and a
// plausible random part. It does not authenticate the key.
func IsValidAPIKeyFormat(key string) bool {
	key = strings.TrimSpace(key)
	var rest string
	switch {
	case strings.HasPrefix(key, APIKeyPrefixLive):
		rest = key[len(APIKeyPrefixLive):]
	case strings.HasPrefix(key, APIKeyPrefixTest):
		rest = key[len(APIKeyPrefixTest):]
	default:
		return false
	}
	return len(rest) >= 2*apiKeyRandomBytes
}

// IsLiveAPIKey reports whether the key is a live-mode credential.
func IsLiveAPIKey(key string) bool {
	return strings.HasPrefix(strings.TrimSpace(key), APIKeyPrefixLive)
}
