package usage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explicae-app/explicae/internal/database"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "sqlite"))

	st := store.New(db, "sqlite")
	return NewTracker(st), st
}

func TestTrackGeneration_User(t *testing.T) {
	tracker, st := newTestTracker(t)

	user, err := st.CreateUser(&models.User{
		Email:    "prof@escola.br",
		Password: "not-a-real-hash",
		Plan: models.PlanState{
			PlanType:           models.PlanFreeTrial,
			SubscriptionStatus: models.SubscriptionActive,
			GenerationsLimit:   8,
		},
	})
	require.NoError(t, err)

	tracker.TrackGeneration(user.ID, "", "fotossíntese", "crianças")

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Plan.GenerationsUsed)

	count, err := st.CountUsageEvents()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTrackGeneration_Anonymous(t *testing.T) {
	tracker, st := newTestTracker(t)

	tracker.TrackGeneration("", "visitor-1", "frações", "")

	used, err := st.GetAnonymousUsage("visitor-1")
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestTrackGeneration_FailureDoesNotPanic(t *testing.T) {
	tracker, _ := newTestTracker(t)

	// Counter update hits a user row that does not exist; tracking is
	// best-effort and must swallow it.
	assert.NotPanics(t, func() {
		tracker.TrackGeneration("ghost-user", "", "frações", "")
	})
}
