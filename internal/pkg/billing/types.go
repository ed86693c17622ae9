package billing

import (
	"time"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
)

// Stripe event types the reconciler acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSetupIntentSucceeded     = "setup_intent.succeeded"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Metadata keys written on checkout sessions and setup intents.
const (
	MetadataUserID      = "user_id"
	MetadataListingID   = "listing_id"
	MetadataServiceType = "service_type"
	MetadataTierType    = "tier_type"
	MetadataIsAnnual    = "is_annual"
)

// CheckoutMetadata is the listing purchase context carried on a checkout
// session's metadata.
type CheckoutMetadata struct {
	UserID      string `validate:"required,max=64"`
	ListingID   string `validate:"required,max=64"`
	ServiceType ServiceType
	TierType    string `validate:"required,max=32"`
	IsAnnual    bool
}

// SubscriptionState is the lifecycle slice of a subscription that billing-cycle
// and cancellation events overwrite.
type SubscriptionState struct {
	Status            string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// Summary is what the billing panel shows for one user.
type Summary struct {
	UserID         string                `json:"user_id"`
	Subscriptions  []models.Subscription `json:"subscriptions"`
	// LiveListingIDs are the listings whose subscription still keeps them
	// published.
	LiveListingIDs []string              `json:"live_listing_ids"`
	PaymentMethod  *models.PaymentMethod `json:"payment_method,omitempty"`
}

// WebhookResult describes how a verified delivery was handled.
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Handled   bool   `json:"handled"`
	Duplicate bool   `json:"duplicate"`
}
