package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/billing"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/usercontext"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	webhookTimeout        = 25 * time.Second
	apiTimeout            = 15 * time.Second
)

var validate = validator.New()

// Global billing controller instance
var billingController *BillingController

// InitializeBillingController installs the controller used by the adapter
// handlers below.
func InitializeBillingController(svc *billing.Service) {
	billingController = NewBillingController(svc)
}

// GetBillingController returns the global billing controller instance
func GetBillingController() *BillingController {
	if billingController == nil {
		panic("billing controller used before InitializeBillingController")
	}
	return billingController
}

// HandleStripeWebhook - Adapter for the Stripe webhook endpoint
func HandleStripeWebhook(c *fiber.Ctx) error {
	return GetBillingController().HandleStripeWebhook(c)
}

// HandleBillingSummary - Adapter for the billing panel summary
func HandleBillingSummary(c *fiber.Ctx) error {
	return GetBillingController().HandleSummary(c)
}

// HandleBillingCheckout - Adapter for starting a listing checkout
func HandleBillingCheckout(c *fiber.Ctx) error {
	return GetBillingController().HandleCreateCheckout(c)
}

// HandleBillingSetupIntent - Adapter for starting a card update
func HandleBillingSetupIntent(c *fiber.Ctx) error {
	return GetBillingController().HandleCreateSetupIntent(c)
}

// BillingController serves the Stripe webhook and the billing panel API.
type BillingController struct {
	svc *billing.Service
}

func NewBillingController(svc *billing.Service) *BillingController {
	return &BillingController{svc: svc}
}

// HandleStripeWebhook verifies and reconciles one Stripe delivery.
// 400 stops Stripe from retrying; 500 asks it to retry.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	start := time.Now()
	// fasthttp reuses the request buffer after the handler returns
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get(stripeSignatureHeader)

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	result, err := bc.svc.ProcessWebhook(ctx, rawBody, signature)

	eventType := "unknown"
	if result != nil && result.EventType != "" {
		eventType = result.EventType
	}
	status := fiber.StatusOK
	defer func() {
		billing.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		billing.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if err != nil {
		var sigErr *billing.SignatureVerificationError
		if errors.As(err, &sigErr) {
			status = fiber.StatusBadRequest
			log.Warnf("[Webhook] %v", err)
			return c.Status(status).JSON(fiber.Map{"error": "Webhook signature verification failed"})
		}
		status = fiber.StatusInternalServerError
		log.Errorf("[Webhook] Processing %s (%s) failed: %v", resultEventID(result), eventType, err)
		return c.Status(status).JSON(fiber.Map{"error": "Webhook processing failed"})
	}

	return c.Status(status).JSON(fiber.Map{"received": true})
}

func resultEventID(result *billing.WebhookResult) string {
	if result == nil {
		return ""
	}
	return result.EventID
}

// HandleSummary returns the caller's subscriptions and stored card.
func (bc *BillingController) HandleSummary(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), apiTimeout)
	defer cancel()

	summary, err := bc.svc.GetSummary(ctx, userCtx.UserID)
	if err != nil {
		log.Errorf("[Billing] Summary for %s failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load billing summary"})
	}
	return c.JSON(summary)
}

type checkoutRequest struct {
	ListingID   string `json:"listing_id" validate:"required,max=64"`
	ServiceType string `json:"service_type" validate:"required,max=32"`
	TierType    string `json:"tier_type" validate:"required,max=32"`
	IsAnnual    bool   `json:"is_annual"`
}

// HandleCreateCheckout starts a Stripe Checkout for one of the caller's listings.
func (bc *BillingController) HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}
	if _, err := billing.ParseServiceType(req.ServiceType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), apiTimeout)
	defer cancel()

	sess, err := bc.svc.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		UserID:      userCtx.UserID,
		Email:       userCtx.Email,
		ListingID:   req.ListingID,
		ServiceType: req.ServiceType,
		TierType:    req.TierType,
		IsAnnual:    req.IsAnnual,
	})
	switch {
	case err == nil:
	case errors.Is(err, billing.ErrListingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Listing not found"})
	case errors.Is(err, billing.ErrListingNotOwned):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Listing belongs to another user"})
	case errors.Is(err, billing.ErrPriceNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Tier is not available for this listing"})
	default:
		log.Errorf("[Billing] Checkout for user %s listing %s failed: %v", userCtx.UserID, req.ListingID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to start checkout"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sess.ID,
		"url":        sess.URL,
	})
}

// HandleCreateSetupIntent starts the card update flow for the caller.
func (bc *BillingController) HandleCreateSetupIntent(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), apiTimeout)
	defer cancel()

	si, err := bc.svc.CreateSetupIntent(ctx, userCtx.UserID, userCtx.Email)
	if err != nil {
		log.Errorf("[Billing] Setup intent for user %s failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to start card update"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"setup_intent_id": si.ID,
		"client_secret":   si.ClientSecret,
	})
}
