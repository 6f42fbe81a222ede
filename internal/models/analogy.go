package models

import "time"

// Analogy is a saved entry in a user's personal library.
type Analogy struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Concept   string    `json:"concept" db:"concept"`
	Audience  string    `json:"audience" db:"audience"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UsageEvent is one generation attempt in the append-only usage log.
// Exactly one of UserID or AnonymousID is set.
type UsageEvent struct {
	ID          string    `json:"id" db:"id"`
	UserID      *string   `json:"user_id,omitempty" db:"user_id"`
	AnonymousID *string   `json:"anonymous_id,omitempty" db:"anonymous_id"`
	Concept     string    `json:"concept" db:"concept"`
	Audience    string    `json:"audience" db:"audience"`
	OccurredAt  time.Time `json:"occurred_at" db:"occurred_at"`
}
