package ratelimit

import (
	"strconv"
	"strings"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/internal/pkg/env"
)

// PlanQuota holds the per-window request quotas for one plan. Nil Hour/Day
// means unlimited for that window (the check is skipped entirely).
type PlanQuota struct {
	Minute int
	Hour   *int
	Day    *int
}

// IPQuota holds the per-minute quotas for anonymous traffic.
type IPQuota struct {
	Auth   int
	Public int
}

// Config is the explicit, injected rate-limit configuration. It is loaded
// once at startup and passed to the service and guard; nothing mutates it
// afterwards.
type Config struct {
	Enabled              bool
	FailOpen             bool
	FailOpenInProduction bool
	Production           bool
	Plans                map[string]PlanQuota
	IP                   IPQuota
}

func intPtr(v int) *int { return &v }

// DefaultPlanQuotas returns the built-in per-plan quota table.
func DefaultPlanQuotas() map[string]PlanQuota {
	return map[string]PlanQuota{
		models.PlanFree:       {Minute: 100, Hour: intPtr(2000), Day: intPtr(20000)},
		models.PlanStarter:    {Minute: 300, Hour: intPtr(10000), Day: intPtr(100000)},
		models.PlanPro:        {Minute: 1000, Hour: intPtr(50000), Day: intPtr(500000)},
		models.PlanEnterprise: {Minute: 5000, Hour: nil, Day: nil},
	}
}

// DefaultIPQuota returns the built-in anonymous per-minute quotas. Auth
// endpoints are deliberately tighter than public ones.
func DefaultIPQuota() IPQuota {
	return IPQuota{Auth: 20, Public: 60}
}

// DefaultConfig returns a production-safe configuration: enabled, fail-open
// outside production only.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		FailOpen:             true,
		FailOpenInProduction: false,
		Production:           true,
		Plans:                DefaultPlanQuotas(),
		IP:                   DefaultIPQuota(),
	}
}

// LoadConfigFromEnv builds the configuration from environment variables,
// falling back to the defaults above.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool("RATE_LIMIT_ENABLED", true)
	cfg.FailOpen = envBool("RATE_LIMIT_FAIL_OPEN", true)
	cfg.FailOpenInProduction = envBool("RATE_LIMIT_FAIL_OPEN_IN_PRODUCTION", false)
	cfg.Production = env.IsProduction()
	return cfg
}

// QuotaForPlan resolves the quota table entry for a plan. Unrecognized plans
// get the free tier.
func (c Config) QuotaForPlan(plan string) PlanQuota {
	q, ok := c.Plans[strings.ToLower(strings.TrimSpace(plan))]
	if !ok {
		return c.Plans[models.PlanFree]
	}
	return q
}

// AllowOnStoreFailure decides the fail-open/fail-closed policy for counter
// store connectivity errors. Production requires the explicit opt-in flag.
func (c Config) AllowOnStoreFailure() bool {
	if !c.FailOpen {
		return false
	}
	if c.Production {
		return c.FailOpenInProduction
	}
	return true
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
