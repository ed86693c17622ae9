package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/gorm"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
)

var (
	ErrUserRequired    = errors.New("billing: user id is required")
	ErrListingNotFound = errors.New("billing: listing not found")
	ErrListingNotOwned = errors.New("billing: listing belongs to another user")
	ErrPriceNotFound   = errors.New("billing: no price configured")
)

// PayloadArchive keeps a copy of verified webhook payloads.
type PayloadArchive interface {
	StoreWebhookPayload(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) error
}

// Service is the entry point used by the HTTP layer: webhook deliveries and
// the billing panel.
type Service struct {
	config     *StripeConfig
	processor  Processor
	repo       Repository
	cache      SummaryCache
	archive    PayloadArchive
	reconciler *Reconciler
}

type ServiceOption func(*Service)

// WithSummaryCache enables cache-aside reads of billing summaries.
func WithSummaryCache(cache SummaryCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithPayloadArchive stores every handled webhook payload.
func WithPayloadArchive(archive PayloadArchive) ServiceOption {
	return func(s *Service) { s.archive = archive }
}

func NewService(config *StripeConfig, processor Processor, repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		config:    config,
		processor: processor,
		repo:      repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = NewReconciler(processor, repo, s.cache)
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, config *StripeConfig, processor Processor, opts ...ServiceOption) *Service {
	return NewService(config, processor, NewRepository(db), opts...)
}

// ProcessWebhook verifies and reconciles one Stripe delivery. A
// *SignatureVerificationError means the delivery was rejected before any
// state was touched; any other error means processing failed and Stripe
// should retry.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := VerifyStripeEvent(payload, signatureHeader, s.config.WebhookSecret)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
	}
	if !s.reconciler.Handles(result.EventType) {
		log.Infof("[Webhook] Ignoring unhandled Stripe event %s (%s)", event.ID, event.Type)
		return result, nil
	}
	result.Handled = true

	created, stored, err := s.recordWebhookEvent(ctx, &event, payload)
	if err != nil {
		return result, fmt.Errorf("record webhook event %s: %w", event.ID, err)
	}
	if !created && stored.Succeeded() {
		result.Duplicate = true
		log.Infof("[Webhook] Event %s already processed, acknowledging", event.ID)
		return result, nil
	}

	if created && s.archive != nil {
		if err := s.archive.StoreWebhookPayload(ctx, stored.ProviderEventID, stored.CreatedAt, payload); err != nil {
			log.Warnf("[Webhook] Failed to archive payload of %s: %v", stored.ProviderEventID, err)
		}
	}

	procErr := s.reconciler.Dispatch(ctx, &event)
	if err := s.markWebhookProcessed(context.WithoutCancel(ctx), stored.ID, procErr); err != nil {
		log.Errorf("[Webhook] Failed to mark event %s processed: %v", event.ID, err)
	}
	if procErr != nil {
		return result, procErr
	}
	return result, nil
}

// recordWebhookEvent persists the payload idempotently and reports whether
// this delivery created the row.
func (s *Service) recordWebhookEvent(ctx context.Context, event *stripe.Event, payload []byte) (bool, *models.BillingWebhookEvent, error) {
	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
	})
}

func (s *Service) markWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}

// GetSummary returns the user's subscriptions and stored card, served from
// the summary cache when possible.
func (s *Service) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}

	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, gen, err := s.cache.Get(ctx, userID)
		switch {
		case err == nil:
			return cached, nil
		case errors.Is(err, ErrCacheMiss):
			cacheable = true
			generation = gen
		default:
			log.Warnf("[Billing] Summary cache read failed for %s: %v", userID, err)
		}
	}

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	summary := &Summary{UserID: userID, Subscriptions: subs, LiveListingIDs: []string{}}
	for i := range subs {
		if subs[i].IsLive() {
			summary.LiveListingIDs = append(summary.LiveListingIDs, subs[i].ListingID)
		}
	}

	pm, err := s.repo.GetPaymentMethodByUser(ctx, userID)
	switch {
	case err == nil:
		summary.PaymentMethod = pm
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("get payment method: %w", err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, summary, generation); err != nil {
			log.Warnf("[Billing] Summary cache write failed for %s: %v", userID, err)
		}
	}
	return summary, nil
}

// CheckoutRequest is a user's request to buy a tier for one of their listings.
type CheckoutRequest struct {
	UserID      string
	Email       string
	ListingID   string
	ServiceType string
	TierType    string
	IsAnnual    bool
}

// CreateCheckoutSession starts a subscription checkout whose completion is
// reconciled by HandleCheckoutCompleted.
func (s *Service) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (*stripe.CheckoutSession, error) {
	st, err := ParseServiceType(in.ServiceType)
	if err != nil {
		return nil, err
	}
	md := CheckoutMetadata{
		UserID:      strings.TrimSpace(in.UserID),
		ListingID:   strings.TrimSpace(in.ListingID),
		ServiceType: st,
		TierType:    normalizeTier(in.TierType),
		IsAnnual:    in.IsAnnual,
	}
	if md.UserID == "" {
		return nil, ErrUserRequired
	}
	if err := validate.Struct(md); err != nil {
		return nil, fmt.Errorf("checkout request: %w", err)
	}

	owner, err := s.repo.ListingOwner(ctx, st, md.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("lookup listing %s: %w", md.ListingID, err)
	}
	if owner != md.UserID {
		return nil, ErrListingNotOwned
	}

	priceID, err := s.config.PriceID(st, md.TierType, md.IsAnnual)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceNotFound, err)
	}

	customerID, err := s.ensureCustomer(ctx, md.UserID, in.Email)
	if err != nil {
		return nil, err
	}

	sess, err := s.processor.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID: customerID,
		PriceID:    priceID,
		Metadata:   md,
		SuccessURL: s.config.SuccessURL,
		CancelURL:  s.config.CancelURL,
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Billing] Checkout session %s created: user=%s listing=%s tier=%s", sess.ID, md.UserID, md.ListingID, md.TierType)
	return sess, nil
}

// CreateSetupIntent starts the card update flow reconciled by
// HandleSetupIntentSucceeded.
func (s *Service) CreateSetupIntent(ctx context.Context, userID, email string) (*stripe.SetupIntent, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}
	customerID, err := s.ensureCustomer(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	return s.processor.CreateSetupIntent(ctx, customerID, userID)
}

// ensureCustomer reuses the customer already linked to the user or creates one.
func (s *Service) ensureCustomer(ctx context.Context, userID, email string) (string, error) {
	customerID, err := s.repo.FindCustomerIDByUser(ctx, userID)
	if err == nil {
		return customerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("lookup customer for user %s: %w", userID, err)
	}
	cust, err := s.processor.CreateCustomer(ctx, userID, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}
