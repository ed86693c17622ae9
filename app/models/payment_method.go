package models

import "time"

// PaymentMethod is the single stored card of a user. The unique index on
// user_id backs the one-card-per-user rule at the database level.
type PaymentMethod struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_methods_user" json:"user_id"`
	StripePaymentMethodID string    `gorm:"type:varchar(191);not null;index" json:"stripe_payment_method_id"`
	StripeCustomerID      string    `gorm:"type:varchar(191);not null" json:"stripe_customer_id"`
	IsDefault             bool      `gorm:"not null" json:"is_default"`
	Last4                 string    `gorm:"column:last_4;type:varchar(4)" json:"last_4"`
	CardBrand             string    `gorm:"type:varchar(32)" json:"card_brand"`
	ExpMonth              int64     `json:"exp_month"`
	ExpYear               int64     `json:"exp_year"`
	CardFingerprint       string    `gorm:"type:varchar(64)" json:"card_fingerprint"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
