package store

import (
	"fmt"
	"time"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/google/uuid"
)

// PlanChange is a payment event reduced to the plan mutation it implies.
// Billing providers map their payloads into this before anything
// touches the database.
type PlanChange struct {
	Provider      string
	Fingerprint   string
	EventType     string
	CustomerEmail string
	ProductID     string

	Plan          models.PlanType
	Status        models.SubscriptionStatus
	Credits       int
	CreditsExpiry *time.Time
}

// ApplyPlanChange records the webhook event and applies the plan and
// credit mutation in one transaction. Replayed events (same
// fingerprint) are detected by the unique constraint and skipped
// without re-applying, so provider retries never double-grant credits.
// Returns false when the event had already been processed.
func (s *Store) ApplyPlanChange(change PlanChange) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// INSERT ... DO NOTHING + affected-rows is the idempotency check:
	// a replay inserts zero rows.
	result, err := tx.Exec(
		s.q(`INSERT INTO webhook_events (id, provider, fingerprint, event_type, customer_email, product_id, received_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fingerprint) DO NOTHING`),
		uuid.NewString(), change.Provider, change.Fingerprint, change.EventType,
		change.CustomerEmail, change.ProductID, time.Now(),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	var userID string
	err = tx.QueryRow(
		s.q(`SELECT id FROM users WHERE email = ?`), change.CustomerEmail,
	).Scan(&userID)
	if err != nil {
		return false, fmt.Errorf("no user for webhook customer %s: %w", change.CustomerEmail, err)
	}

	_, err = tx.Exec(
		s.q(`UPDATE users SET plan_type = ?, subscription_status = ?, updated_at = ? WHERE id = ?`),
		string(change.Plan), string(change.Status), time.Now(), userID,
	)
	if err != nil {
		return false, err
	}

	if change.Credits > 0 {
		_, err = tx.Exec(
			s.q(`INSERT INTO credit_batches (id, user_id, remaining, granted, expires_at, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`),
			uuid.NewString(), userID, change.Credits, change.Credits, change.CreditsExpiry, time.Now(),
		)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
