// Package usage records generation attempts and spends credits.
package usage

import (
	"log"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

// Tracker mutates usage counters and the append-only usage log.
type Tracker struct {
	store *store.Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// TrackGeneration appends a UsageEvent and increments the relevant
// counter. It runs once per accepted request, after the evaluator has
// approved it, and for every plan type. Unlimited plans are tracked
// too, for analytics. Tracking is best-effort telemetry: failures are
// logged and swallowed so a recording hiccup never withholds an
// already-approved generation.
func (t *Tracker) TrackGeneration(userID, anonymousID, concept, audience string) {
	event := &models.UsageEvent{
		Concept:  concept,
		Audience: audience,
	}
	if userID != "" {
		event.UserID = &userID
	} else if anonymousID != "" {
		event.AnonymousID = &anonymousID
	}

	if err := t.store.AppendUsageEvent(event); err != nil {
		log.Printf("Failed to append usage event: %v", err)
	}

	if userID != "" {
		if err := t.store.IncrementUserUsage(userID); err != nil {
			log.Printf("Failed to increment usage for user %s: %v", userID, err)
		}
	} else if anonymousID != "" {
		if err := t.store.IncrementAnonymousUsage(anonymousID); err != nil {
			log.Printf("Failed to increment anonymous usage for %s: %v", anonymousID, err)
		}
	}
}

// ConsumeCredit spends one credit for a credit-plan user and returns
// the remaining balance. Unlike tracking, a consumption failure is a
// correctness problem and is surfaced to the caller. The underlying
// decrement is atomic, so a balance is never driven negative.
func (t *Tracker) ConsumeCredit(userID string) (int, error) {
	return t.store.ConsumeCredit(userID)
}
