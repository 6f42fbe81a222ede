package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// CreateSession persists a new session token for a user.
func (s *Store) CreateSession(userID, token string, expiresAt time.Time) error {
	_, err := s.db.Exec(
		s.q(`INSERT INTO sessions (id, user_id, token, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), userID, token, time.Now(), expiresAt,
	)
	return err
}

// ValidateSession checks a session token and returns the session row.
func (s *Store) ValidateSession(token string) (*models.Session, error) {
	session := &models.Session{}
	err := s.db.QueryRow(
		s.q(`SELECT id, user_id, token, created_at, expires_at FROM sessions WHERE token = ?`),
		token,
	).Scan(&session.ID, &session.UserID, &session.Token, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if session.ExpiresAt.Before(time.Now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// DeleteSession removes a session
func (s *Store) DeleteSession(token string) error {
	result, err := s.db.Exec(s.q(`DELETE FROM sessions WHERE token = ?`), token)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CleanupExpiredSessions removes expired session records.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(s.q(`DELETE FROM sessions WHERE expires_at < ?`), time.Now())
	return err
}
