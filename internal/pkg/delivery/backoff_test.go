package delivery

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 0},
		{attempt: 2, want: 1 * time.Minute},
		{attempt: 3, want: 5 * time.Minute},
		{attempt: 4, want: 15 * time.Minute},
		{attempt: 5, want: 1 * time.Hour},
		{attempt: 6, want: 3 * time.Hour},
		{attempt: 7, want: 8 * time.Hour},
		{attempt: 8, want: 24 * time.Hour},
		{attempt: 9, want: 24 * time.Hour},
		{attempt: 100, want: 24 * time.Hour},
		{attempt: 0, want: 0},
		{attempt: -1, want: 0},
	}
	for _, tt := range tests {
		if got := BackoffDelay(tt.attempt); got != tt.want {
			t.Fatalf("BackoffDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelay_Monotonic(t *testing.T) {
	prev := time.Duration(-1)
	for attempt := 1; attempt <= DefaultMaxAttempts; attempt++ {
		delay := BackoffDelay(attempt)
		if delay < prev {
			t.Fatalf("delay for attempt %d (%s) shorter than previous (%s)", attempt, delay, prev)
		}
		prev = delay
	}
}

func TestSignPayload(t *testing.T) {
	sig, err := SignPayload([]byte(`{"hello":"world"}`), "whsec_abc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.Len(t, sig, len("sha256=")+64)

	same, err := SignPayload([]byte(`{"hello":"world"}`), "whsec_abc")
	require.NoError(t, err)
	assert.Equal(t, sig, same)

	other, err := SignPayload([]byte(`{"hello":"world"}`), "whsec_other")
	require.NoError(t, err)
	assert.NotEqual(t, sig, other)
}

func TestSignPayload_EmptySecret(t *testing.T) {
	_, err := SignPayload([]byte(`{}`), "")
	assert.Error(t, err)
}
