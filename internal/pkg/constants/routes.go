package constants

// Route constants
const (
	HealthRoute        = "/healthz"
	MetricsRoute       = "/metrics"
	StripeWebhookRoute = "/webhooks/stripe"

	// API group and its versioned billing routes
	APIPrefix               = "/api"
	APIVersionPrefix        = "/v1"
	BillingRoute            = "/billing"
	BillingCheckoutRoute    = "/billing/checkout"
	BillingSetupIntentRoute = "/billing/setup-intent"
)
