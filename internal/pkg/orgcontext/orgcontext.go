package orgcontext

import "github.com/gofiber/fiber/v2"

// OrgContext represents the resolved tenant identity for a request.
// Anonymous requests carry the zero value.
type OrgContext struct {
	OrgID           uint   `json:"org_id"`
	Slug            string `json:"slug"`
	Plan            string `json:"plan"`
	IsAuthenticated bool   `json:"is_authenticated"`
	LiveMode        bool   `json:"live_mode"`
}

// GetOrgContext retrieves the org context from fiber context.
// Returns an anonymous context if none is set.
func GetOrgContext(c *fiber.Ctx) OrgContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		return ctx.(OrgContext)
	}
	return OrgContext{IsAuthenticated: false}
}

// SetOrgContext stores the resolved tenant identity for downstream handlers.
func SetOrgContext(c *fiber.Ctx, octx OrgContext) {
	c.Locals(ContextKey, octx)
	c.Locals(KeyOrgID, octx.OrgID)
	c.Locals(KeyOrgSlug, octx.Slug)
	c.Locals(KeyPlan, octx.Plan)
	c.Locals(KeyLiveMode, octx.LiveMode)
}

// IsAuthenticated checks if the current request has a resolved tenant.
func IsAuthenticated(c *fiber.Ctx) bool {
	return GetOrgContext(c).IsAuthenticated
}

// GetOrgID returns the current org's ID, or 0 for anonymous requests.
func GetOrgID(c *fiber.Ctx) uint {
	return GetOrgContext(c).OrgID
}
