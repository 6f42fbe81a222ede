// Package entitlement decides whether a principal may run one more
// generation. The evaluator is a pure function over plan state and
// counters: it reads nothing, writes nothing, and is recomputed on
// every request.
package entitlement

import (
	"log"
	"time"

	"github.com/explicae-app/explicae/internal/models"
)

// Evaluator applies the entitlement rules.
type Evaluator struct {
	// AnonymousLimit is the lifetime generation allowance for an
	// unauthenticated visitor.
	AnonymousLimit int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// New creates an evaluator with the given anonymous limit.
func New(anonymousLimit int) *Evaluator {
	return &Evaluator{
		AnonymousLimit: anonymousLimit,
		Now:            time.Now,
	}
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// EvaluateAnonymous decides for an unauthenticated visitor: allowed
// while their counter is below the anonymous limit.
func (e *Evaluator) EvaluateAnonymous(used int) models.AccessDecision {
	decision := models.AccessDecision{
		Used:      used,
		Limit:     e.AnonymousLimit,
		Remaining: clampRemaining(e.AnonymousLimit, used),
	}
	if used < e.AnonymousLimit {
		decision.CanGenerate = true
		decision.Reason = models.ReasonOK
	} else {
		decision.Reason = models.ReasonAnonymousLimitReached
	}
	return decision
}

// EvaluateUser decides for an authenticated user. Rules apply in strict
// precedence; the first match wins. A cancelled subscription blocks
// generation even when credits remain.
func (e *Evaluator) EvaluateUser(state models.PlanState) models.AccessDecision {
	decision := models.AccessDecision{
		Used:      state.GenerationsUsed,
		Limit:     state.GenerationsLimit,
		Remaining: clampRemaining(state.GenerationsLimit, state.GenerationsUsed),
	}

	if state.SubscriptionStatus == models.SubscriptionCancelled {
		decision.Reason = models.ReasonSubscriptionCancelled
		return decision
	}
	if state.SubscriptionStatus == models.SubscriptionPending {
		decision.Reason = models.ReasonPaymentPending
		return decision
	}

	switch state.PlanType {
	case models.PlanMonthly, models.PlanAnnual, models.PlanAdmin,
		models.PlanCourtesy, models.PlanPromo, models.PlanPartner, models.PlanGift:
		decision.CanGenerate = true
		decision.Reason = models.ReasonOK
		decision.Unlimited = true
		decision.Limit = 0
		decision.Remaining = 0
		return decision

	case models.PlanFreeTrial:
		if state.TrialEndsAt != nil && e.now().After(*state.TrialEndsAt) {
			decision.Reason = models.ReasonTrialExpired
			return decision
		}
		// Storage does not enforce used <= limit; overage is a deny,
		// not an assumed invariant.
		if state.GenerationsUsed >= state.GenerationsLimit {
			decision.Reason = models.ReasonLimitReached
			return decision
		}
		decision.CanGenerate = true
		decision.Reason = models.ReasonOK
		return decision

	case models.PlanCreditPack:
		batch := state.Credits
		if batch == nil || batch.Remaining <= 0 || batch.Expired(e.now()) {
			decision.Reason = models.ReasonNoCredits
			return decision
		}
		decision.CanGenerate = true
		decision.Reason = models.ReasonOK
		decision.Used = batch.Granted - batch.Remaining
		decision.Limit = batch.Granted
		decision.Remaining = batch.Remaining
		return decision

	default:
		// Fail closed: an unrecognized plan never allows generation.
		log.Printf("Warning: unrecognized plan type %q, denying", state.PlanType)
		decision.Reason = models.ReasonLimitReached
		return decision
	}
}

func clampRemaining(limit, used int) int {
	if remaining := limit - used; remaining > 0 {
		return remaining
	}
	return 0
}
