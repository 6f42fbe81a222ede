package auth

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/database"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

func configureTestAuth(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "sqlite"))

	st := store.New(db, "sqlite")

	cfg := config.Config{}
	cfg.Session.Secret = "test-secret"
	cfg.Session.TTLHours = 24
	cfg.Limits.TrialGenerations = 8
	cfg.Limits.TrialDays = 7
	Configure(st, &cfg)

	return st
}

func TestRegisterUser_StartsFreeTrial(t *testing.T) {
	configureTestAuth(t)

	user, err := RegisterUser("prof@escola.br", "senha-segura-123")
	require.NoError(t, err)

	assert.Equal(t, models.PlanFreeTrial, user.Plan.PlanType)
	assert.Equal(t, models.SubscriptionActive, user.Plan.SubscriptionStatus)
	assert.Equal(t, 8, user.Plan.GenerationsLimit)
	assert.Zero(t, user.Plan.GenerationsUsed)

	require.NotNil(t, user.Plan.TrialEndsAt)
	expected := time.Now().AddDate(0, 0, 7)
	assert.WithinDuration(t, expected, *user.Plan.TrialEndsAt, time.Minute)

	assert.NotEqual(t, "senha-segura-123", user.Password, "password is stored hashed")
}

func TestValidateUser(t *testing.T) {
	configureTestAuth(t)

	_, err := RegisterUser("prof@escola.br", "senha-segura-123")
	require.NoError(t, err)

	user, err := ValidateUser("prof@escola.br", "senha-segura-123")
	require.NoError(t, err)
	assert.Equal(t, "prof@escola.br", user.Email)

	_, err = ValidateUser("prof@escola.br", "senha-errada")
	assert.Error(t, err)

	_, err = ValidateUser("ninguem@escola.br", "senha-segura-123")
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	configureTestAuth(t)

	user, err := RegisterUser("prof@escola.br", "senha-segura-123")
	require.NoError(t, err)

	token, err := CreateSession(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateSession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	require.NoError(t, DeleteSession(token))
	_, err = ValidateSession(token)
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidateEmail("prof@escola.br"))
	assert.False(t, ValidateEmail("sem-arroba"))
	assert.True(t, ValidatePassword("12345678"))
	assert.False(t, ValidatePassword("curta"))
}
