package models

import "time"

const (
	BillingStatusActive            = "active"
	BillingStatusTrialing          = "trialing"
	BillingStatusPastDue           = "past_due"
	BillingStatusUnpaid            = "unpaid"
	BillingStatusCanceled          = "canceled"
	BillingStatusIncomplete        = "incomplete"
	BillingStatusIncompleteExpired = "incomplete_expired"
	BillingStatusPaused            = "paused"
)

// Subscription is the purchased listing tier for one (user, listing) pair.
// Rows are upserted on (user_id, listing_id) and never hard-deleted.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               string     `gorm:"type:varchar(64);not null;index:ux_subscriptions_user_listing,unique,priority:1" json:"user_id"`
	ListingID            string     `gorm:"type:varchar(64);not null;index:ux_subscriptions_user_listing,unique,priority:2" json:"listing_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;index" json:"stripe_subscription_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);not null;index" json:"stripe_customer_id"`
	Status               string     `gorm:"type:varchar(32);not null" json:"status"`
	ServiceType          string     `gorm:"type:varchar(32);not null" json:"service_type"`
	TierType             string     `gorm:"type:varchar(32);not null" json:"tier_type"`
	IsAnnual             bool       `gorm:"not null" json:"is_annual"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"not null" json:"cancel_at_period_end"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLive reports whether the subscription still entitles the listing to be shown.
func (s *Subscription) IsLive() bool {
	switch s.Status {
	case BillingStatusActive, BillingStatusTrialing, BillingStatusPastDue:
		return true
	default:
		return false
	}
}
