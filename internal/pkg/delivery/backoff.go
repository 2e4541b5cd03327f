package delivery

import "time"

// DefaultMaxAttempts bounds the delivery attempt chain. After the final
// scheduled attempt fails the delivery is marked permanently failed.
const DefaultMaxAttempts = 8

// DefaultCircuitBreakerThreshold is the number of consecutive failed
// deliveries (across the endpoint's delivery chains) after which the
// endpoint is disabled.
const DefaultCircuitBreakerThreshold = 25

// backoffDelays is the fixed delay schedule indexed by completed attempt
// count. Attempt 1 happens immediately; later attempts back off up to a day.
var backoffDelays = []time.Duration{
	0,
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	1 * time.Hour,
	3 * time.Hour,
	8 * time.Hour,
	24 * time.Hour,
}

// BackoffDelay returns the wait before the given attempt number (1-indexed).
// Attempts past the table reuse the final 24h delay.
func BackoffDelay(attemptNumber int) time.Duration {
	index := attemptNumber - 1
	if index < 0 {
		index = 0
	}
	if index >= len(backoffDelays) {
		index = len(backoffDelays) - 1
	}
	return backoffDelays[index]
}
