package orgcontext

// Shared Locals keys used across controllers and middlewares
const (
	ContextKey  = "ORG_CONTEXT"
	KeyOrgID    = "org_id"
	KeyOrgSlug  = "org_slug"
	KeyPlan     = "org_plan"
	KeyLiveMode = "live_mode"
)
