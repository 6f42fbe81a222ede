package billing

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

const maxStripeBodyBytes = int64(65536)

// HandleStripe verifies the event signature and applies it. Stripe
// event ids are unique and stable across retries, so the id itself is
// the idempotency fingerprint.
func (s *Service) HandleStripe(r *http.Request) error {
	if s.stripeSecret == "" {
		return ErrBadSignature
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxStripeBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		s.stripeSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		email := ""
		if sess.CustomerDetails != nil {
			email = sess.CustomerDetails.Email
		}
		productID := sess.ClientReferenceID
		if productID == "" {
			productID = sess.Metadata["product_id"]
		}
		if email == "" || productID == "" {
			return fmt.Errorf("%w: checkout session missing email or product", ErrMalformed)
		}
		return s.applyPurchase("stripe", event.ID, string(event.Type), email, productID)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		// Checkout sets these on the subscription so cancellations can
		// be resolved without a customer lookup.
		email := sub.Metadata["customer_email"]
		productID := sub.Metadata["product_id"]
		if email == "" {
			return fmt.Errorf("%w: subscription missing customer_email metadata", ErrMalformed)
		}
		return s.applyCancellation("stripe", event.ID, string(event.Type), email, productID)

	default:
		log.Printf("Ignoring stripe event %q", event.Type)
		return nil
	}
}
