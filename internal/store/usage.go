package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/google/uuid"
)

// GetAnonymousUsage returns the generation count for an anonymous id,
// defaulting to 0 when the id has never been seen.
func (s *Store) GetAnonymousUsage(anonymousID string) (int, error) {
	var used int
	err := s.db.QueryRow(
		s.q(`SELECT generations_used FROM anonymous_usage WHERE anonymous_id = ?`),
		anonymousID,
	).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return used, nil
}

// IncrementAnonymousUsage bumps the counter for an anonymous id,
// creating the row on first use.
func (s *Store) IncrementAnonymousUsage(anonymousID string) error {
	now := time.Now()
	_, err := s.db.Exec(
		s.q(`INSERT INTO anonymous_usage (anonymous_id, generations_used, created_at, updated_at)
			VALUES (?, 1, ?, ?)
			ON CONFLICT (anonymous_id) DO UPDATE SET
				generations_used = anonymous_usage.generations_used + 1,
				updated_at = excluded.updated_at`),
		anonymousID, now, now,
	)
	return err
}

// IncrementUserUsage bumps the authenticated per-period counter.
func (s *Store) IncrementUserUsage(userID string) error {
	result, err := s.db.Exec(
		s.q(`UPDATE users SET generations_used = generations_used + 1, updated_at = ? WHERE id = ?`),
		time.Now(), userID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendUsageEvent records one generation attempt in the append-only
// usage log. Events are never mutated or deleted.
func (s *Store) AppendUsageEvent(event *models.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	_, err := s.db.Exec(
		s.q(`INSERT INTO usage_events (id, user_id, anonymous_id, concept, audience, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
		event.ID, event.UserID, event.AnonymousID, event.Concept, event.Audience, event.OccurredAt,
	)
	return err
}

// CountUsageEvents returns the total number of logged generations.
func (s *Store) CountUsageEvents() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM usage_events`).Scan(&n)
	return n, err
}

// ConsumeCredit spends one credit from the user's most restrictive
// usable batch. The decrement is a single conditional UPDATE checked by
// affected rows, so two concurrent requests racing over the last credit
// cannot both win. Returns the user's total usable balance afterwards.
func (s *Store) ConsumeCredit(userID string) (int, error) {
	now := time.Now()

	// Another request may drain the chosen batch between the read and
	// the decrement; re-pick a few times before giving up.
	for attempt := 0; attempt < 3; attempt++ {
		batch, err := s.bestCreditBatch(userID, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return 0, ErrNoCredits
			}
			return 0, err
		}

		result, err := s.db.Exec(
			s.q(`UPDATE credit_batches SET remaining = remaining - 1 WHERE id = ? AND remaining > 0`),
			batch.ID,
		)
		if err != nil {
			return 0, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		if rows == 1 {
			return s.TotalUsableCredits(userID)
		}
	}

	return 0, ErrNoCredits
}

// TotalUsableCredits sums the user's non-expired credit balances.
func (s *Store) TotalUsableCredits(userID string) (int, error) {
	var total int
	err := s.db.QueryRow(
		s.q(`SELECT COALESCE(SUM(remaining), 0) FROM credit_batches
			WHERE user_id = ? AND (expires_at IS NULL OR expires_at > ?)`),
		userID, time.Now(),
	).Scan(&total)
	return total, err
}

// AddCreditBatch grants a new block of credits to a user.
func (s *Store) AddCreditBatch(userID string, credits int, expiresAt *time.Time) (*models.CreditBatch, error) {
	batch := &models.CreditBatch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Remaining: credits,
		Granted:   credits,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		s.q(`INSERT INTO credit_batches (id, user_id, remaining, granted, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
		batch.ID, batch.UserID, batch.Remaining, batch.Granted, batch.ExpiresAt, batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return batch, nil
}
