// Package store handles all database operations. Counters and credit
// balances are owned by the database and re-read on every request;
// nothing here is cached in process memory.
package store

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrNoCredits = errors.New("no usable credits")
)

// Store handles all database operations
type Store struct {
	db     *sql.DB
	dbType string
}

// New creates a new store instance
func New(db *sql.DB, dbType string) *Store {
	return &Store{db: db, dbType: dbType}
}

// DB exposes the underlying connection for migrations and maintenance
// scripts.
func (s *Store) DB() *sql.DB {
	return s.db
}

// q rewrites ?-placeholders to $n for the postgres driver. Queries are
// written once in sqlite style and rebound here.
func (s *Store) q(query string) string {
	if s.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CreateUser inserts a new user. The caller is expected to have set the
// plan fields (signup sets the default free trial).
func (s *Store) CreateUser(user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.Exec(
		s.q(`INSERT INTO users (id, email, password, is_admin, plan_type, subscription_status,
			trial_ends_at, generations_used, generations_limit, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.Password, user.IsAdmin,
		string(user.Plan.PlanType), string(user.Plan.SubscriptionStatus),
		user.Plan.TrialEndsAt, user.Plan.GenerationsUsed, user.Plan.GenerationsLimit,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var planType, status string
	err := row.Scan(
		&user.ID, &user.Email, &user.Password, &user.IsAdmin,
		&planType, &status, &user.Plan.TrialEndsAt,
		&user.Plan.GenerationsUsed, &user.Plan.GenerationsLimit,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Plan.PlanType = models.PlanType(planType)
	user.Plan.SubscriptionStatus = models.SubscriptionStatus(status)
	return user, nil
}

const userColumns = `id, email, password, is_admin, plan_type, subscription_status,
	trial_ends_at, generations_used, generations_limit, created_at, updated_at`

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		s.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), email,
	))
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id,
	))
}

// GetPlanState loads the user's plan row plus, for credit plans, the
// most restrictive usable credit batch (soonest expiry first, then
// smallest balance, so ties never pick an arbitrary batch).
func (s *Store) GetPlanState(userID string) (*models.PlanState, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	state := user.Plan

	if state.PlanType == models.PlanCreditPack {
		batch, err := s.bestCreditBatch(userID, time.Now())
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		state.Credits = batch
	}

	return &state, nil
}

func (s *Store) bestCreditBatch(userID string, now time.Time) (*models.CreditBatch, error) {
	batch := &models.CreditBatch{}
	err := s.db.QueryRow(
		s.q(`SELECT id, user_id, remaining, granted, expires_at, created_at
			FROM credit_batches
			WHERE user_id = ? AND remaining > 0 AND (expires_at IS NULL OR expires_at > ?)
			ORDER BY CASE WHEN expires_at IS NULL THEN 1 ELSE 0 END, expires_at, remaining
			LIMIT 1`),
		userID, now,
	).Scan(&batch.ID, &batch.UserID, &batch.Remaining, &batch.Granted, &batch.ExpiresAt, &batch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// UpdateUserPlan sets a user's plan type and subscription status.
func (s *Store) UpdateUserPlan(userID string, plan models.PlanType, status models.SubscriptionStatus) error {
	result, err := s.db.Exec(
		s.q(`UPDATE users SET plan_type = ?, subscription_status = ?, updated_at = ? WHERE id = ?`),
		string(plan), string(status), time.Now(), userID,
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

// ListUsers returns a page of users ordered by signup date.
func (s *Store) ListUsers(offset, limit int) ([]*models.User, error) {
	rows, err := s.db.Query(
		s.q(`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var planType, status string
		err := rows.Scan(
			&user.ID, &user.Email, &user.Password, &user.IsAdmin,
			&planType, &status, &user.Plan.TrialEndsAt,
			&user.Plan.GenerationsUsed, &user.Plan.GenerationsLimit,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		user.Plan.PlanType = models.PlanType(planType)
		user.Plan.SubscriptionStatus = models.SubscriptionStatus(status)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsersByPlan returns user counts keyed by plan type.
func (s *Store) CountUsersByPlan() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT plan_type, COUNT(*) FROM users GROUP BY plan_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var plan string
		var n int
		if err := rows.Scan(&plan, &n); err != nil {
			return nil, err
		}
		counts[plan] = n
	}
	return counts, rows.Err()
}

// CountUsers returns the total number of users.
func (s *Store) CountUsers() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
