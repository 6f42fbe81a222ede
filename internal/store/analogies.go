package store

import (
	"database/sql"
	"time"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/google/uuid"
)

// SaveAnalogy stores an analogy in the user's library.
func (s *Store) SaveAnalogy(analogy *models.Analogy) (*models.Analogy, error) {
	if analogy.ID == "" {
		analogy.ID = uuid.NewString()
	}
	analogy.CreatedAt = time.Now()
	_, err := s.db.Exec(
		s.q(`INSERT INTO analogies (id, user_id, concept, audience, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
		analogy.ID, analogy.UserID, analogy.Concept, analogy.Audience, analogy.Content, analogy.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return analogy, nil
}

// GetAnalogy retrieves an analogy owned by the given user.
func (s *Store) GetAnalogy(id, userID string) (*models.Analogy, error) {
	analogy := &models.Analogy{}
	err := s.db.QueryRow(
		s.q(`SELECT id, user_id, concept, audience, content, created_at
			FROM analogies WHERE id = ? AND user_id = ?`),
		id, userID,
	).Scan(&analogy.ID, &analogy.UserID, &analogy.Concept, &analogy.Audience, &analogy.Content, &analogy.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return analogy, nil
}

// ListAnalogies returns a user's saved analogies, newest first.
func (s *Store) ListAnalogies(userID string) ([]*models.Analogy, error) {
	rows, err := s.db.Query(
		s.q(`SELECT id, user_id, concept, audience, content, created_at
			FROM analogies WHERE user_id = ? ORDER BY created_at DESC`),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analogies []*models.Analogy
	for rows.Next() {
		analogy := &models.Analogy{}
		err := rows.Scan(&analogy.ID, &analogy.UserID, &analogy.Concept,
			&analogy.Audience, &analogy.Content, &analogy.CreatedAt)
		if err != nil {
			return nil, err
		}
		analogies = append(analogies, analogy)
	}
	return analogies, rows.Err()
}

// DeleteAnalogy removes an analogy if the user owns it.
func (s *Store) DeleteAnalogy(id, userID string) error {
	result, err := s.db.Exec(
		s.q(`DELETE FROM analogies WHERE id = ? AND user_id = ?`),
		id, userID,
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
