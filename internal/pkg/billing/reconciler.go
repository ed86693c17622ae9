package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
)

// idempotencyNamespace scopes the processor idempotency keys derived from
// webhook event ids.
var idempotencyNamespace = uuid.MustParse("6d2f4f8e-93a5-4c1e-9a57-3f0c2b7e15d4")

// idempotencyKey is stable for (event, operation, object) so a redelivered
// event repeats the same upstream request instead of issuing a new one.
func idempotencyKey(eventID, op, objectID string) string {
	if eventID == "" {
		return ""
	}
	return uuid.NewSHA1(idempotencyNamespace, []byte(eventID+"|"+op+"|"+objectID)).String()
}

// Reconciler applies verified Stripe events to subscriptions, payment
// methods and listings.
type Reconciler struct {
	processor Processor
	repo      Repository
	cache     SummaryCache
}

// NewReconciler wires a reconciler. cache may be nil.
func NewReconciler(processor Processor, repo Repository, cache SummaryCache) *Reconciler {
	return &Reconciler{
		processor: processor,
		repo:      repo,
		cache:     cache,
	}
}

// Handles reports whether eventType has a reconciliation procedure.
func (r *Reconciler) Handles(eventType string) bool {
	switch eventType {
	case EventCheckoutSessionCompleted,
		EventSetupIntentSucceeded,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

// Dispatch decodes the event's data object and runs the matching procedure.
// Unhandled event types are logged and acknowledged.
func (r *Reconciler) Dispatch(ctx context.Context, event *stripe.Event) error {
	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := decodeEventObject(event, &session); err != nil {
			return err
		}
		return r.HandleCheckoutCompleted(ctx, event.ID, &session)

	case EventSetupIntentSucceeded:
		var si stripe.SetupIntent
		if err := decodeEventObject(event, &si); err != nil {
			return err
		}
		return r.HandleSetupIntentSucceeded(ctx, event.ID, &si)

	case EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := decodeEventObject(event, &sub); err != nil {
			return err
		}
		return r.HandleSubscriptionUpdated(ctx, &sub)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeEventObject(event, &sub); err != nil {
			return err
		}
		return r.HandleSubscriptionDeleted(ctx, &sub)

	default:
		log.Infof("[Webhook] Ignoring unhandled Stripe event %s (%s)", event.ID, event.Type)
		return nil
	}
}

func decodeEventObject(event *stripe.Event, v interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("event %s has no data object", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}
	return nil
}

// HandleCheckoutCompleted records the purchased subscription for the
// session's (user, listing), stores the card used for payment when the
// session carried a payment intent, and publishes the listing.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, eventID string, session *stripe.CheckoutSession) error {
	md, err := ParseCheckoutMetadata(session.Metadata)
	if err != nil {
		return fmt.Errorf("checkout session %s: %w", session.ID, err)
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return fmt.Errorf("checkout session %s has no subscription", session.ID)
	}

	sub, err := r.processor.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return err
	}
	customerID := customerIDOf(sub.Customer)
	if customerID == "" {
		customerID = customerIDOf(session.Customer)
	}

	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		pi, err := r.processor.GetPaymentIntent(ctx, session.PaymentIntent.ID)
		if err != nil {
			return err
		}
		if pi.PaymentMethod != nil && pi.PaymentMethod.ID != "" {
			pm, err := r.processor.GetPaymentMethod(ctx, pi.PaymentMethod.ID)
			if err != nil {
				return err
			}
			if err := r.replaceDefaultPaymentMethod(ctx, paymentMethodReplacement{
				EventID:        eventID,
				UserID:         md.UserID,
				CustomerID:     customerID,
				SubscriptionID: sub.ID,
				PaymentMethod:  pm,
			}); err != nil {
				return err
			}
		}
	}

	row := &models.Subscription{
		UserID:               md.UserID,
		ListingID:            md.ListingID,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     customerID,
		Status:               normalizeStatus(string(sub.Status)),
		ServiceType:          string(md.ServiceType),
		TierType:             md.TierType,
		IsAnnual:             md.IsAnnual,
		CurrentPeriodEnd:     unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	err = r.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.UpsertSubscription(ctx, row); err != nil {
			return fmt.Errorf("upsert subscription for listing %s: %w", md.ListingID, err)
		}
		n, err := tx.PublishListing(ctx, md.ServiceType, md.ListingID)
		if err != nil {
			return fmt.Errorf("publish %s listing %s: %w", md.ServiceType, md.ListingID, err)
		}
		if n == 0 {
			log.Infof("[Billing] %s listing %s unchanged (missing or already published)", md.ServiceType, md.ListingID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidate(ctx, md.UserID)
	log.Infof("[Billing] Checkout %s reconciled: user=%s listing=%s subscription=%s status=%s",
		session.ID, md.UserID, md.ListingID, sub.ID, row.Status)
	return nil
}

// HandleSetupIntentSucceeded makes the card saved by a setup intent the
// user's only stored payment method.
func (r *Reconciler) HandleSetupIntentSucceeded(ctx context.Context, eventID string, si *stripe.SetupIntent) error {
	paymentMethodID := ""
	if si.PaymentMethod != nil {
		paymentMethodID = si.PaymentMethod.ID
	}
	customerID := customerIDOf(si.Customer)
	if paymentMethodID == "" || customerID == "" {
		log.Infof("[Billing] Setup intent %s has no payment method or customer, skipping", si.ID)
		return nil
	}
	userID := metadataValue(si.Metadata, MetadataUserID)
	if userID == "" {
		log.Warnf("[Billing] Setup intent %s has no %s metadata, skipping", si.ID, MetadataUserID)
		return nil
	}

	pm, err := r.processor.GetPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return err
	}
	if err := r.replaceDefaultPaymentMethod(ctx, paymentMethodReplacement{
		EventID:                   eventID,
		UserID:                    userID,
		CustomerID:                customerID,
		PaymentMethod:             pm,
		CompensateOnInsertFailure: true,
	}); err != nil {
		return err
	}

	r.invalidate(ctx, userID)
	log.Infof("[Billing] Setup intent %s reconciled: user=%s payment_method=%s", si.ID, userID, pm.ID)
	return nil
}

// HandleSubscriptionUpdated copies lifecycle fields from a billing-cycle or
// plan change onto the stored rows.
func (r *Reconciler) HandleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	return r.applySubscriptionState(ctx, sub, SubscriptionState{
		Status:            normalizeStatus(string(sub.Status)),
		CurrentPeriodEnd:  unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	})
}

// HandleSubscriptionDeleted marks the stored rows canceled. Rows are kept.
func (r *Reconciler) HandleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	return r.applySubscriptionState(ctx, sub, SubscriptionState{
		Status:            models.BillingStatusCanceled,
		CurrentPeriodEnd:  unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	})
}

func (r *Reconciler) applySubscriptionState(ctx context.Context, sub *stripe.Subscription, state SubscriptionState) error {
	if sub.ID == "" {
		return fmt.Errorf("subscription event has no subscription id")
	}
	userIDs, err := r.repo.UpdateSubscriptionState(ctx, sub.ID, state)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}
	if len(userIDs) == 0 {
		log.Infof("[Billing] No local rows for subscription %s, skipping", sub.ID)
		return nil
	}

	r.invalidate(ctx, userIDs...)
	log.Infof("[Billing] Subscription %s set to %s for %d user(s)", sub.ID, state.Status, len(userIDs))
	return nil
}

type paymentMethodReplacement struct {
	EventID    string
	UserID     string
	CustomerID string
	// SubscriptionID is set when the card should also become the
	// subscription's default.
	SubscriptionID string
	PaymentMethod  *stripe.PaymentMethod
	// CompensateOnInsertFailure detaches the new card upstream when the
	// local row cannot be written or committed.
	CompensateOnInsertFailure bool
}

// replaceDefaultPaymentMethod leaves exactly one payment method row for the
// user: the new card, flagged default. Local reads, deletes and the insert
// share one transaction. Old cards are detached upstream only after that
// transaction commits, so a rollback never leaves rows for detached cards.
func (r *Reconciler) replaceDefaultPaymentMethod(ctx context.Context, in paymentMethodReplacement) error {
	if in.PaymentMethod == nil || in.PaymentMethod.ID == "" {
		return fmt.Errorf("replace payment method for user %s: no payment method", in.UserID)
	}
	if in.CustomerID == "" {
		return fmt.Errorf("replace payment method for user %s: no customer", in.UserID)
	}
	newID := in.PaymentMethod.ID

	var oldIDs []string
	defaultSet, alreadyStored := false, false
	err := r.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.ListPaymentMethodsForUpdate(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("list payment methods for user %s: %w", in.UserID, err)
		}
		for _, old := range existing {
			// A redelivered event finds its own card already stored.
			if old.StripePaymentMethodID == newID {
				alreadyStored = true
				continue
			}
			if old.StripePaymentMethodID == "" {
				continue
			}
			oldIDs = append(oldIDs, old.StripePaymentMethodID)
		}

		if err := tx.DeletePaymentMethodsByUser(ctx, in.UserID); err != nil {
			return fmt.Errorf("delete payment methods for user %s: %w", in.UserID, err)
		}

		if err := r.processor.SetCustomerDefaultPaymentMethod(ctx, in.CustomerID, newID); err != nil {
			return err
		}
		defaultSet = true
		if in.SubscriptionID != "" {
			if err := r.processor.SetSubscriptionDefaultPaymentMethod(ctx, in.SubscriptionID, newID); err != nil {
				return err
			}
		}

		if err := tx.CreatePaymentMethod(ctx, paymentMethodRow(in.UserID, in.CustomerID, in.PaymentMethod)); err != nil {
			return fmt.Errorf("insert payment method %s for user %s: %w", newID, in.UserID, err)
		}
		return nil
	})
	if err != nil {
		// Nothing was stored, yet the processor already holds the card as
		// default. A card stored by an earlier delivery keeps its rolled
		// back row and stays attached.
		if defaultSet && !alreadyStored && in.CompensateOnInsertFailure {
			r.compensateDetach(ctx, newID, in.UserID)
		}
		return err
	}

	for _, oldID := range oldIDs {
		key := idempotencyKey(in.EventID, "detach", oldID)
		if err := r.processor.DetachPaymentMethod(ctx, oldID, key); err != nil {
			DetachFailuresTotal.Inc()
			log.Warnf("[Billing] Failed to detach old payment method %s for user %s: %v", oldID, in.UserID, err)
		}
	}
	return nil
}

// compensateDetach undoes the upstream attachment of a card whose local row
// could not be stored. Its own failure is only logged.
func (r *Reconciler) compensateDetach(ctx context.Context, paymentMethodID, userID string) {
	if err := r.processor.DetachPaymentMethod(context.WithoutCancel(ctx), paymentMethodID, ""); err != nil {
		CompensatingDetachesTotal.WithLabelValues("failed").Inc()
		log.Errorf("[Billing] Compensating detach of %s for user %s failed: %v", paymentMethodID, userID, err)
		return
	}
	CompensatingDetachesTotal.WithLabelValues("detached").Inc()
	log.Warnf("[Billing] Detached %s for user %s after the local row could not be stored", paymentMethodID, userID)
}

func (r *Reconciler) invalidate(ctx context.Context, userIDs ...string) {
	if r.cache == nil || len(userIDs) == 0 {
		return
	}
	if err := r.cache.Invalidate(ctx, userIDs...); err != nil {
		log.Warnf("[Billing] Failed to invalidate billing summary cache for %v: %v", userIDs, err)
	}
}

func paymentMethodRow(userID, customerID string, pm *stripe.PaymentMethod) *models.PaymentMethod {
	row := &models.PaymentMethod{
		UserID:                userID,
		StripePaymentMethodID: pm.ID,
		StripeCustomerID:      customerID,
		IsDefault:             true,
	}
	if pm.Card != nil {
		row.Last4 = pm.Card.Last4
		row.CardBrand = string(pm.Card.Brand)
		row.ExpMonth = pm.Card.ExpMonth
		row.ExpYear = pm.Card.ExpYear
		row.CardFingerprint = pm.Card.Fingerprint
	}
	return row
}

func customerIDOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
