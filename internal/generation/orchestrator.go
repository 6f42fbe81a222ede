package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/explicae-app/explicae/internal/entitlement"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
	"github.com/explicae-app/explicae/internal/usage"
)

// DeniedError carries the evaluator's verdict when generation is
// refused, so the API layer can surface the exact reason.
type DeniedError struct {
	Decision models.AccessDecision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("generation denied: %s", e.Decision.Reason)
}

// Request is one generation attempt. Exactly one of UserID or
// AnonymousID is set.
type Request struct {
	Concept     string
	Audience    string
	UserID      string
	AnonymousID string
}

// Result is a successful generation plus the caller's updated usage.
type Result struct {
	Analogies []string
	Usage     models.UsageSnapshot
}

// Orchestrator runs the per-request sequence: evaluate entitlement,
// track usage, consume a credit when applicable, call the provider.
type Orchestrator struct {
	store     *store.Store
	evaluator *entitlement.Evaluator
	tracker   *usage.Tracker
	provider  Provider
	count     int
}

// NewOrchestrator wires the orchestrator's collaborators. count is how
// many analogies each generation requests from the provider.
func NewOrchestrator(s *store.Store, e *entitlement.Evaluator, t *usage.Tracker, p Provider, count int) *Orchestrator {
	return &Orchestrator{
		store:     s,
		evaluator: e,
		tracker:   t,
		provider:  p,
		count:     count,
	}
}

// Generate runs one request to completion. Denials return
// *DeniedError; provider failures wrap ErrUpstream. Once usage is
// tracked it is never rolled back, even when the provider call fails.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	decision, planType, err := o.evaluate(req)
	if err != nil {
		return nil, err
	}
	if !decision.CanGenerate {
		return nil, &DeniedError{Decision: decision}
	}

	// Tracking is unconditional for accepted requests and never runs
	// for rejected ones.
	o.tracker.TrackGeneration(req.UserID, req.AnonymousID, req.Concept, req.Audience)

	// For credit plans the atomic decrement is the real gate: of two
	// concurrent requests racing over the last credit, only the one
	// that wins the decrement proceeds to the provider.
	consumedRemaining := -1
	if planType == models.PlanCreditPack {
		remaining, err := o.tracker.ConsumeCredit(req.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNoCredits) {
				decision.CanGenerate = false
				decision.Reason = models.ReasonNoCredits
				decision.Remaining = 0
				return nil, &DeniedError{Decision: decision}
			}
			return nil, fmt.Errorf("credit consumption failed: %w", err)
		}
		consumedRemaining = remaining
	}

	analogies, err := o.provider.Generate(ctx, req.Concept, req.Audience, o.count)
	if err != nil {
		// Usage was already tracked; it is not rolled back.
		return nil, err
	}

	return &Result{
		Analogies: analogies,
		Usage:     o.updatedUsage(decision, consumedRemaining),
	}, nil
}

// Snapshot returns the caller's current usage without mutating state.
func (o *Orchestrator) Snapshot(req Request) (models.UsageSnapshot, error) {
	decision, _, err := o.evaluate(req)
	if err != nil {
		return models.UsageSnapshot{}, err
	}
	return decision.Snapshot(), nil
}

func (o *Orchestrator) evaluate(req Request) (models.AccessDecision, models.PlanType, error) {
	if req.UserID != "" {
		state, err := o.store.GetPlanState(req.UserID)
		if err != nil {
			return models.AccessDecision{}, "", err
		}
		return o.evaluator.EvaluateUser(*state), state.PlanType, nil
	}

	used, err := o.store.GetAnonymousUsage(req.AnonymousID)
	if err != nil {
		return models.AccessDecision{}, "", err
	}
	return o.evaluator.EvaluateAnonymous(used), "", nil
}

// updatedUsage reflects this request in the reported counters without
// re-reading the database.
func (o *Orchestrator) updatedUsage(decision models.AccessDecision, consumedRemaining int) models.UsageSnapshot {
	decision.Used++
	if consumedRemaining >= 0 {
		decision.Remaining = consumedRemaining
	} else if decision.Remaining > 0 {
		decision.Remaining--
	}
	return decision.Snapshot()
}
