package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

var (
	dataStore    *store.Store
	tokenManager *TokenManager
	trialLimit   int
	trialDays    int
	sessionTTL   time.Duration
)

// Configure wires the auth package to its store and settings.
func Configure(s *store.Store, cfg *config.Config) {
	dataStore = s
	tokenManager = NewTokenManager(cfg.Session.Secret)
	trialLimit = cfg.Limits.TrialGenerations
	trialDays = cfg.Limits.TrialDays
	sessionTTL = time.Duration(cfg.Session.TTLHours) * time.Hour
}

// GetTokenManager returns the configured token manager.
func GetTokenManager() *TokenManager {
	return tokenManager
}

// RegisterUser creates a new user on the default free trial: a
// time-boxed window with a fixed generation grant.
func RegisterUser(email, password string) (*models.User, error) {
	user, err := models.NewUser(email, password)
	if err != nil {
		return nil, err
	}

	trialEnds := time.Now().AddDate(0, 0, trialDays)
	user.Plan = models.PlanState{
		PlanType:           models.PlanFreeTrial,
		SubscriptionStatus: models.SubscriptionActive,
		TrialEndsAt:        &trialEnds,
		GenerationsUsed:    0,
		GenerationsLimit:   trialLimit,
	}

	return dataStore.CreateUser(user)
}

// ValidateUser validates user credentials
func ValidateUser(email, password string) (*models.User, error) {
	user, err := dataStore.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}

	if !user.ValidatePassword(password) {
		return nil, errors.New("invalid password")
	}

	return user, nil
}

// CreateSession creates a new session for a user
func CreateSession(userID string) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(sessionTTL)
	if err := dataStore.CreateSession(userID, token, expiresAt); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateSession validates a session token and returns the user ID
func ValidateSession(token string) (string, error) {
	session, err := dataStore.ValidateSession(token)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// DeleteSession deletes a user's session
func DeleteSession(token string) error {
	return dataStore.DeleteSession(token)
}

// CleanupExpiredSessions removes expired session records from the database.
func CleanupExpiredSessions() error {
	return dataStore.CleanupExpiredSessions()
}

// generateRandomToken generates a random token string
func generateRandomToken() (string, error) {
	tokenBytes := make([]byte, 32)
	_, err := rand.Read(tokenBytes)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// ValidatePassword checks if a password meets the minimum requirements.
func ValidatePassword(password string) bool {
	return len(password) >= 8
}

// ValidateEmail checks if an email has a valid format.
func ValidateEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}
