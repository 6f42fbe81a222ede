package models

// DenyReason explains why a generation was refused. Reasons are part of
// the API contract: clients branch on them to render the right upsell.
type DenyReason string

const (
	ReasonOK                    DenyReason = "ok"
	ReasonTrialExpired          DenyReason = "trial_expired"
	ReasonLimitReached          DenyReason = "limit_reached"
	ReasonNoCredits             DenyReason = "no_credits"
	ReasonSubscriptionCancelled DenyReason = "subscription_cancelled"
	ReasonPaymentPending        DenyReason = "payment_pending"
	ReasonAnonymousLimitReached DenyReason = "anonymous_limit_reached"
)

// AccessDecision is the evaluator's verdict for a single generation
// attempt. It is derived state, recomputed on every check.
type AccessDecision struct {
	CanGenerate bool
	Reason      DenyReason
	Unlimited   bool

	// Used/Limit/Remaining are meaningful only when Unlimited is false.
	Used      int
	Limit     int
	Remaining int
}

// UsageSnapshot is the wire form of a principal's current usage.
// Unlimited plans omit limit and remaining rather than reporting a
// sentinel number.
type UsageSnapshot struct {
	Used      int  `json:"used"`
	Limit     *int `json:"limit,omitempty"`
	Remaining *int `json:"remaining,omitempty"`
	Unlimited bool `json:"unlimited,omitempty"`
}

// Snapshot converts a decision into its wire form.
func (d AccessDecision) Snapshot() UsageSnapshot {
	if d.Unlimited {
		return UsageSnapshot{Used: d.Used, Unlimited: true}
	}
	limit := d.Limit
	remaining := d.Remaining
	return UsageSnapshot{Used: d.Used, Limit: &limit, Remaining: &remaining}
}
