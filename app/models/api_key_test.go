package models

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	live, err := GenerateAPIKey(true)
	if err != nil {
		t.Fatalf("GenerateAPIKey(true) returned error: %v", err)
	}
	if !strings.HasPrefix(live, APIKeyPrefixLive) {
		t.Fatalf("expected live prefix, got %q", live)
	}
	if !IsValidAPIKeyFormat(live) {
		t.Fatalf("generated live key %q failed format check", live)
	}
	if !IsLiveAPIKey(live) {
		t.Fatalf("expected %q to be a live key", live)
	}

	test, err := GenerateAPIKey(false)
	if err != nil {
		t.Fatalf("GenerateAPIKey(false) returned error: %v", err)
	}
	if !strings.HasPrefix(test, APIKeyPrefixTest) {
		t.Fatalf("expected test prefix, got %q", test)
	}
	if IsLiveAPIKey(test) {
		t.Fatalf("expected %q to be a test key", test)
	}
	if live == test {
		t.Fatal("expected distinct keys")
	}
}

func TestIsValidAPIKeyFormat(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: "fs_live_" + strings.Repeat("a", 48), want: true},
		{key: "fs_test_" + strings.Repeat("b", 48), want: true},
		{key: "  fs_test_" + strings.Repeat("b", 48) + "  ", want: true},
		{key: "fs_live_short", want: false},
		{key: "sk_live_" + strings.Repeat("a", 48), want: false},
		{key: "", want: false},
		{key: "fs_live_", want: false},
	}
	for _, tt := range tests {
		if got := IsValidAPIKeyFormat(tt.key); got != tt.want {
			t.Fatalf("IsValidAPIKeyFormat(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestHashAPIKey(t *testing.T) {
	h := HashAPIKey("fs_test_abc")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	if h != HashAPIKey("fs_test_abc") {
		t.Fatal("hash must be deterministic")
	}
	if h == HashAPIKey("fs_test_abd") {
		t.Fatal("different keys must not collide trivially")
	}
}
