package models

import "time"

// PlanType identifies which entitlement rules apply to a user.
type PlanType string

const (
	PlanFreeTrial  PlanType = "free_trial"
	PlanCreditPack PlanType = "credit_pack"
	PlanMonthly    PlanType = "monthly"
	PlanAnnual     PlanType = "annual"
	PlanAdmin      PlanType = "admin"
	PlanCourtesy   PlanType = "courtesy"
	PlanPromo      PlanType = "promo"
	PlanPartner    PlanType = "partner"
	PlanGift       PlanType = "gift"
)

// IsUnlimited reports whether the plan carries no generation quota.
// Unlimited is a property of the plan type, never encoded as a
// sentinel limit value.
func (p PlanType) IsUnlimited() bool {
	switch p {
	case PlanMonthly, PlanAnnual, PlanAdmin, PlanCourtesy, PlanPromo, PlanPartner, PlanGift:
		return true
	}
	return false
}

// Known reports whether the plan type is one the evaluator recognizes.
// Unrecognized values must be denied, never silently allowed.
func (p PlanType) Known() bool {
	switch p {
	case PlanFreeTrial, PlanCreditPack, PlanMonthly, PlanAnnual,
		PlanAdmin, PlanCourtesy, PlanPromo, PlanPartner, PlanGift:
		return true
	}
	return false
}

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// PlanState is everything the entitlement evaluator needs to know about
// a user's plan. Counters live in the database and are re-read on every
// check; this struct is never cached across requests.
type PlanState struct {
	PlanType           PlanType           `json:"plan_type" db:"plan_type"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty" db:"trial_ends_at"`
	GenerationsUsed    int                `json:"generations_used" db:"generations_used"`
	GenerationsLimit   int                `json:"generations_limit" db:"generations_limit"`

	// Credits is the user's most restrictive usable credit batch
	// (soonest expiry, then smallest balance), nil when none exists.
	Credits *CreditBatch `json:"credits,omitempty" db:"-"`
}

// CreditBatch is a purchased block of generation credits with an
// optional expiry.
type CreditBatch struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Remaining int        `json:"remaining" db:"remaining"`
	Granted   int        `json:"granted" db:"granted"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the batch can no longer be consumed.
func (b *CreditBatch) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}
