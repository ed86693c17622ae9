package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// SignatureVerificationError is returned when a delivery cannot be proven to
// come from Stripe. Deliveries failing with it must not be retried.
type SignatureVerificationError struct {
	Reason error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Reason)
}

func (e *SignatureVerificationError) Unwrap() error {
	return e.Reason
}

// VerifyStripeEvent checks the Stripe-Signature header against the exact raw
// payload bytes and only then decodes the event.
func VerifyStripeEvent(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	if strings.TrimSpace(webhookSecret) == "" {
		return stripe.Event{}, &SignatureVerificationError{Reason: fmt.Errorf("webhook secret is not configured")}
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return stripe.Event{}, &SignatureVerificationError{Reason: webhook.ErrNotSigned}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, &SignatureVerificationError{Reason: err}
	}
	return event, nil
}
