package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Window is a fixed-duration counting period against which a quota is
// enforced.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// IPLimitKind classifies anonymous traffic for the fixed IP quota table.
type IPLimitKind string

const (
	IPLimitAuth   IPLimitKind = "auth"
	IPLimitPublic IPLimitKind = "public"
)

// ErrStoreUnavailable is returned when the counter store is unreachable and
// the configuration mandates fail-closed. The guard maps it to HTTP 503.
var ErrStoreUnavailable = errors.New("ratelimit: counter store unavailable")

// Result is the per-request limit decision. RetryAfter is set only when the
// request was rejected.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      int64
	RetryAfter int
}

// Service decides, per logical key and time window, whether a request is
// permitted. All state lives in the external counter store; the service
// itself is stateless and safe for concurrent use.
type Service struct {
	store CounterStore
	cfg   Config
}

// NewService creates a rate limiting service. A nil store behaves like a
// disabled limiter (every check passes through).
func NewService(store CounterStore, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

func (w Window) duration() time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// CheckLimit enforces a quota for one key and window. With no configured
// store or disabled config it passes through with the full quota reported.
// Store connectivity failures follow the fail-open/fail-closed policy.
func (s *Service) CheckLimit(ctx context.Context, key string, limit int, window Window) (*Result, error) {
	dur := window.duration()
	if !s.cfg.Enabled || s.store == nil {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			Reset:     time.Now().Add(dur).Unix(),
		}, nil
	}

	count, ttl, err := s.store.Consume(ctx, key, limit, dur)
	reset := time.Now().Add(ttl).Unix()

	if err != nil {
		if errors.Is(err, ErrLimitExceeded) {
			retryAfter := int(ttl.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			return &Result{
				Allowed:    false,
				Limit:      limit,
				Remaining:  0,
				Reset:      reset,
				RetryAfter: retryAfter,
			}, nil
		}

		// Connectivity failure, not a limit decision.
		if s.cfg.AllowOnStoreFailure() {
			log.Warnf("[RateLimit] counter store error for key %s, failing open: %v", key, err)
			return &Result{
				Allowed:   true,
				Limit:     limit,
				Remaining: limit,
				Reset:     time.Now().Add(dur).Unix(),
			}, nil
		}
		log.Errorf("[RateLimit] counter store error for key %s, failing closed: %v", key, err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}

// CheckOrgLimit enforces the plan quotas for a tenant, minute then hour then
// day, short-circuiting on the first rejection. The minute result is
// returned when all windows pass so response headers reflect the tightest
// enforced window. Nil hour/day quotas (enterprise) skip that window.
func (s *Service) CheckOrgLimit(ctx context.Context, orgID uint, plan string) (*Result, error) {
	quota := s.cfg.QuotaForPlan(plan)

	minuteResult, err := s.CheckLimit(ctx, orgKey(orgID, WindowMinute), quota.Minute, WindowMinute)
	if err != nil {
		return nil, err
	}
	if !minuteResult.Allowed {
		return minuteResult, nil
	}

	if quota.Hour != nil {
		result, err := s.CheckLimit(ctx, orgKey(orgID, WindowHour), *quota.Hour, WindowHour)
		if err != nil {
			return nil, err
		}
		if !result.Allowed {
			return result, nil
		}
	}

	if quota.Day != nil {
		result, err := s.CheckLimit(ctx, orgKey(orgID, WindowDay), *quota.Day, WindowDay)
		if err != nil {
			return nil, err
		}
		if !result.Allowed {
			return result, nil
		}
	}

	return minuteResult, nil
}

// CheckIPLimit enforces the fixed per-minute IP quota for anonymous traffic.
func (s *Service) CheckIPLimit(ctx context.Context, ip string, kind IPLimitKind) (*Result, error) {
	limit := s.cfg.IP.Public
	if kind == IPLimitAuth {
		limit = s.cfg.IP.Auth
	}
	return s.CheckLimit(ctx, ipKey(ip, WindowMinute), limit, WindowMinute)
}

// Config returns the injected configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Close releases the counter store connection. Safe to call when the store
// was never initialized.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Keys are namespaced per scope and window to avoid cross-tenant collisions
// in the shared store.
func orgKey(orgID uint, window Window) string {
	return fmt.Sprintf("org:%d:%s", orgID, window)
}

func ipKey(ip string, window Window) string {
	return fmt.Sprintf("ip:%s:%s", ip, window)
}
