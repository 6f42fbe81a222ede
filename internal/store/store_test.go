package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explicae-app/explicae/internal/database"
	"github.com/explicae-app/explicae/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, "sqlite"))

	return New(db, "sqlite")
}

func createTestUser(t *testing.T, s *Store, email string, plan models.PlanType) *models.User {
	t.Helper()

	user, err := s.CreateUser(&models.User{
		Email:    email,
		Password: "not-a-real-hash",
		Plan: models.PlanState{
			PlanType:           plan,
			SubscriptionStatus: models.SubscriptionActive,
			GenerationsLimit:   8,
		},
	})
	require.NoError(t, err)
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)

	created := createTestUser(t, s, "prof@escola.br", models.PlanFreeTrial)
	assert.NotEmpty(t, created.ID)

	byEmail, err := s.GetUserByEmail("prof@escola.br")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, models.PlanFreeTrial, byEmail.Plan.PlanType)
	assert.Equal(t, models.SubscriptionActive, byEmail.Plan.SubscriptionStatus)

	byID, err := s.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "prof@escola.br", byID.Email)

	_, err = s.GetUserByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserPlan(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "prof@escola.br", models.PlanFreeTrial)

	require.NoError(t, s.UpdateUserPlan(user.ID, models.PlanMonthly, models.SubscriptionActive))

	updated, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanMonthly, updated.Plan.PlanType)

	assert.ErrorIs(t, s.UpdateUserPlan("missing", models.PlanMonthly, models.SubscriptionActive), ErrNotFound)
}

func TestGetPlanState_PicksMostRestrictiveBatch(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "prof@escola.br", models.PlanCreditPack)

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)
	expired := time.Now().Add(-time.Hour)

	_, err := s.AddCreditBatch(user.ID, 50, &later)
	require.NoError(t, err)
	soonBatch, err := s.AddCreditBatch(user.ID, 10, &soon)
	require.NoError(t, err)
	_, err = s.AddCreditBatch(user.ID, 99, &expired)
	require.NoError(t, err)

	state, err := s.GetPlanState(user.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Credits)
	assert.Equal(t, soonBatch.ID, state.Credits.ID, "expired batches are skipped, soonest expiry wins")
	assert.Equal(t, 10, state.Credits.Remaining)
}

func TestGetPlanState_NoBatchForCreditUser(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "prof@escola.br", models.PlanCreditPack)

	state, err := s.GetPlanState(user.ID)
	require.NoError(t, err)
	assert.Nil(t, state.Credits)
}

func TestListAndCountUsers(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "a@escola.br", models.PlanFreeTrial)
	createTestUser(t, s, "b@escola.br", models.PlanMonthly)
	createTestUser(t, s, "c@escola.br", models.PlanMonthly)

	users, err := s.ListUsers(0, 10)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	total, err := s.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	byPlan, err := s.CountUsersByPlan()
	require.NoError(t, err)
	assert.Equal(t, 2, byPlan["monthly"])
	assert.Equal(t, 1, byPlan["free_trial"])
}
