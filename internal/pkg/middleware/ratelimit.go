package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/forgestack/forgestack/internal/pkg/orgcontext"
	"github.com/forgestack/forgestack/internal/pkg/ratelimit"
)

// RoutePolicy overrides the default rate-limit behavior for one route.
// Policies are resolved at registration time from an explicit map instead of
// per-handler annotations; a route-level entry always wins over the default.
type RoutePolicy struct {
	Skip   bool
	Limit  int
	Window ratelimit.Window
}

// RateLimitGuard intercepts every request, classifies it as tenant-scoped or
// IP-scoped, invokes the rate limiting service and translates the result
// into response headers or a 429 rejection.
func RateLimitGuard(svc *ratelimit.Service, policies map[string]RoutePolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !svc.Config().Enabled {
			return c.Next()
		}

		policy, hasPolicy := policies[routeKey(c)]
		if hasPolicy && policy.Skip {
			return c.Next()
		}

		var (
			result *ratelimit.Result
			err    error
		)
		ctx := c.UserContext()
		octx := orgcontext.GetOrgContext(c)

		switch {
		case hasPolicy && policy.Limit > 0:
			window := policy.Window
			if window == "" {
				window = ratelimit.WindowMinute
			}
			result, err = svc.CheckLimit(ctx, customKey(c, octx, window), policy.Limit, window)
		case octx.IsAuthenticated && octx.OrgID != 0 && octx.Plan != "":
			result, err = svc.CheckOrgLimit(ctx, octx.OrgID, octx.Plan)
		default:
			result, err = svc.CheckIPLimit(ctx, clientIP(c), classifyPath(c.Path()))
		}

		if err != nil {
			// Fail-closed policy: surface the outage, never silently allow.
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"statusCode": fiber.StatusServiceUnavailable,
				"message":    "Service Unavailable",
				"error":      "Rate limiting temporarily unavailable. Please retry.",
			})
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(result.RetryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"statusCode": fiber.StatusTooManyRequests,
				"message":    "Too Many Requests",
				"error":      fmt.Sprintf("Rate limit exceeded. Please wait %d seconds.", result.RetryAfter),
				"retryAfter": result.RetryAfter,
			})
		}

		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, result *ratelimit.Result) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))
}

func routeKey(c *fiber.Ctx) string {
	return c.Method() + " " + c.Route().Path
}

// customKey scopes a per-route override to the tenant when present, else the
// caller IP.
func customKey(c *fiber.Ctx, octx orgcontext.OrgContext, window ratelimit.Window) string {
	if octx.IsAuthenticated && octx.OrgID != 0 {
		return fmt.Sprintf("route:%s:org:%d:%s", c.Route().Path, octx.OrgID, window)
	}
	return fmt.Sprintf("route:%s:ip:%s:%s", c.Route().Path, clientIP(c), window)
}

func classifyPath(path string) ratelimit.IPLimitKind {
	lower := strings.ToLower(path)
	if strings.Contains(lower, "/auth") || strings.Contains(lower, "/login") {
		return ratelimit.IPLimitAuth
	}
	return ratelimit.IPLimitPublic
}

// clientIP resolves the caller address behind proxies: first X-Forwarded-For
// entry, then X-Real-Ip, then the connection remote address, then the
// framework value.
func clientIP(c *fiber.Ctx) string {
	if xff := strings.TrimSpace(c.Get("X-Forwarded-For")); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			xff = xff[:idx]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	if addr := c.Context().RemoteIP(); addr != nil && !addr.IsUnspecified() {
		return addr.String()
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "0.0.0.0"
}
