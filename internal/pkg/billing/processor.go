package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
)

// Processor is the slice of the payment processor API billing depends on.
type Processor interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.PaymentIntent, error)
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*stripe.PaymentMethod, error)
	// DetachPaymentMethod detaches a card from its customer. A non-empty
	// idempotencyKey makes repeated calls for the same key a no-op upstream.
	DetachPaymentMethod(ctx context.Context, paymentMethodID, idempotencyKey string) error
	SetCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	SetSubscriptionDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error
	CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error)
	CreateSetupIntent(ctx context.Context, customerID, userID string) (*stripe.SetupIntent, error)
}

// CheckoutSessionInput describes a subscription checkout for one listing.
type CheckoutSessionInput struct {
	CustomerID string
	PriceID    string
	Metadata   CheckoutMetadata
	SuccessURL string
	CancelURL  string
}

// StripeConfig holds configuration for the Stripe integration.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	// PriceIDs maps priceKey(service, tier, annual) to a Stripe Price ID.
	PriceIDs map[string]string
}

// LoadStripeConfig reads Stripe settings from the environment. Prices are read
// for every service type and every tier listed in STRIPE_TIERS as
// STRIPE_PRICE_<SERVICE>_<TIER>_<MONTHLY|ANNUAL>.
func LoadStripeConfig() *StripeConfig {
	cfg := &StripeConfig{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		SuccessURL:    strings.TrimSpace(env.GetEnv("STRIPE_SUCCESS_URL", "")),
		CancelURL:     strings.TrimSpace(env.GetEnv("STRIPE_CANCEL_URL", "")),
		PriceIDs:      map[string]string{},
	}

	for _, tier := range strings.Split(env.GetEnv("STRIPE_TIERS", "basic,premium"), ",") {
		tier = normalizeTier(tier)
		if tier == "" {
			continue
		}
		for _, st := range AllServiceTypes {
			for _, annual := range []bool{false, true} {
				envKey := fmt.Sprintf("STRIPE_PRICE_%s_%s_%s", st.EnvKey(), strings.ToUpper(tier), intervalEnvToken(annual))
				if id := strings.TrimSpace(env.GetEnv(envKey, "")); id != "" {
					cfg.PriceIDs[priceKey(st, tier, annual)] = id
				}
			}
		}
	}
	return cfg
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key has an unexpected format")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	return nil
}

// PriceID returns the configured Stripe Price ID for a listing tier.
func (c *StripeConfig) PriceID(st ServiceType, tier string, annual bool) (string, error) {
	id, ok := c.PriceIDs[priceKey(st, normalizeTier(tier), annual)]
	if !ok || id == "" {
		return "", fmt.Errorf("stripe: no price configured for %s/%s/%s", st, normalizeTier(tier), strings.ToLower(intervalEnvToken(annual)))
	}
	return id, nil
}

func priceKey(st ServiceType, tier string, annual bool) string {
	return string(st) + ":" + tier + ":" + strconv.FormatBool(annual)
}

func intervalEnvToken(annual bool) string {
	if annual {
		return "ANNUAL"
	}
	return "MONTHLY"
}

// StripeProcessor implements Processor on top of a stripe-go client.
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor creates a processor bound to the configured secret key.
// A nil backends value uses the default HTTP backends.
func NewStripeProcessor(cfg *StripeConfig, backends *stripe.Backends) (*StripeProcessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StripeProcessor{api: client.New(cfg.SecretKey, backends)}, nil
}

func (p *StripeProcessor) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to get subscription %s: %w", subscriptionID, err)
	}
	return sub, nil
}

func (p *StripeProcessor) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to get payment intent %s: %w", paymentIntentID, err)
	}
	return pi, nil
}

func (p *StripeProcessor) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	pm, err := p.api.PaymentMethods.Get(paymentMethodID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to get payment method %s: %w", paymentMethodID, err)
	}
	return pm, nil
}

func (p *StripeProcessor) DetachPaymentMethod(ctx context.Context, paymentMethodID, idempotencyKey string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	if _, err := p.api.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return fmt.Errorf("stripe: failed to detach payment method %s: %w", paymentMethodID, err)
	}
	return nil
}

func (p *StripeProcessor) SetCustomerDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	if _, err := p.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("stripe: failed to set default payment method on customer %s: %w", customerID, err)
	}
	return nil
}

func (p *StripeProcessor) SetSubscriptionDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error {
	params := &stripe.SubscriptionParams{
		DefaultPaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	if _, err := p.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe: failed to set default payment method on subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)
	cust, err := p.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create customer: %w", err)
	}
	log.Infof("[Billing] Created Stripe customer %s for user %s", cust.ID, userID)
	return cust, nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	md := in.Metadata.asMap()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(in.CustomerID),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(in.Metadata.ListingID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: md,
		},
	}
	params.Context = ctx
	for k, v := range md {
		params.AddMetadata(k, v)
	}
	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}
	return sess, nil
}

func (p *StripeProcessor) CreateSetupIntent(ctx context.Context, customerID, userID string) (*stripe.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)
	si, err := p.api.SetupIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create setup intent: %w", err)
	}
	return si, nil
}
