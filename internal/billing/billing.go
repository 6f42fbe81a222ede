// Package billing turns payment-provider webhook deliveries into plan
// changes. Each provider maps its payload into a store.PlanChange; the
// store applies plan and credits in one transaction, keyed by an event
// fingerprint so provider retries never double-grant.
package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

var (
	ErrBadSignature   = errors.New("webhook signature verification failed")
	ErrMalformed      = errors.New("malformed webhook payload")
	ErrUnknownProduct = errors.New("webhook product not mapped to a plan")
)

// Service applies payment events from any supported provider.
type Service struct {
	store        *store.Store
	products     map[string]config.ProductGrant
	hotmartToken string
	stripeSecret string
}

// New creates the billing service.
func New(s *store.Store, cfg *config.Config) *Service {
	return &Service{
		store:        s,
		products:     cfg.Webhooks.Products,
		hotmartToken: cfg.Webhooks.HotmartToken,
		stripeSecret: cfg.Webhooks.StripeSecret,
	}
}

// grantFor resolves a product id to the plan change it purchases.
func (s *Service) grantFor(productID string) (config.ProductGrant, error) {
	grant, ok := s.products[productID]
	if !ok {
		return config.ProductGrant{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	return grant, nil
}

// applyPurchase upgrades the customer to the purchased plan, granting
// credits when the product is a credit pack.
func (s *Service) applyPurchase(provider, fingerprint, eventType, email, productID string) error {
	grant, err := s.grantFor(productID)
	if err != nil {
		return err
	}

	change := store.PlanChange{
		Provider:      provider,
		Fingerprint:   fingerprint,
		EventType:     eventType,
		CustomerEmail: email,
		ProductID:     productID,
		Plan:          models.PlanType(grant.Plan),
		Status:        models.SubscriptionActive,
	}
	if change.Plan == models.PlanCreditPack && grant.Credits > 0 {
		change.Credits = grant.Credits
		if grant.CreditsExpiryDays > 0 {
			expiry := time.Now().AddDate(0, 0, grant.CreditsExpiryDays)
			change.CreditsExpiry = &expiry
		}
	}

	applied, err := s.store.ApplyPlanChange(change)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("Webhook replay ignored: provider=%s fingerprint=%s", provider, fingerprint)
	}
	return nil
}

// applyCancellation marks the customer's subscription cancelled. The
// plan type is kept; the status alone blocks generation.
func (s *Service) applyCancellation(provider, fingerprint, eventType, email, productID string) error {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("no user for webhook customer %s: %w", email, err)
	}

	applied, err := s.store.ApplyPlanChange(store.PlanChange{
		Provider:      provider,
		Fingerprint:   fingerprint,
		EventType:     eventType,
		CustomerEmail: email,
		ProductID:     productID,
		Plan:          user.Plan.PlanType,
		Status:        models.SubscriptionCancelled,
	})
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("Webhook replay ignored: provider=%s fingerprint=%s", provider, fingerprint)
	}
	return nil
}

// fingerprint derives a stable identity for an event from its salient
// fields, for providers that do not ship a unique event id.
func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
