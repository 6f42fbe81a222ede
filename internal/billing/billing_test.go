package billing

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/database"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "sqlite"))

	st := store.New(db, "sqlite")

	cfg := config.Config{}
	cfg.Webhooks.HotmartToken = "test-hottok"
	cfg.Webhooks.StripeSecret = "whsec_test"
	cfg.Webhooks.Products = map[string]config.ProductGrant{
		"plano-mensal": {Plan: "monthly"},
		"pacote-50":    {Plan: "credit_pack", Credits: 50, CreditsExpiryDays: 90},
	}

	return New(st, &cfg), st
}

func createCustomer(t *testing.T, st *store.Store, email string) *models.User {
	t.Helper()
	user, err := st.CreateUser(&models.User{
		Email:    email,
		Password: "not-a-real-hash",
		Plan: models.PlanState{
			PlanType:           models.PlanFreeTrial,
			SubscriptionStatus: models.SubscriptionActive,
			GenerationsLimit:   8,
		},
	})
	require.NoError(t, err)
	return user
}

func hotmartRequest(t *testing.T, hottok string, payload map[string]string) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/webhooks/hotmart", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if hottok != "" {
		r.Header.Set("X-Hotmart-Hottok", hottok)
	}
	return r
}

func TestHandleHotmart_RejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.HandleHotmart(hotmartRequest(t, "wrong", map[string]string{
		"event": "PURCHASE_APPROVED",
	}))
	assert.ErrorIs(t, err, ErrBadSignature)

	err = svc.HandleHotmart(hotmartRequest(t, "", map[string]string{
		"event": "PURCHASE_APPROVED",
	}))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestHandleHotmart_Purchase(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")

	err := svc.HandleHotmart(hotmartRequest(t, "test-hottok", map[string]string{
		"event":          "PURCHASE_APPROVED",
		"customer_email": "prof@escola.br",
		"product_id":     "pacote-50",
		"status":         "APPROVED",
		"transaction":    "HP-001",
	}))
	require.NoError(t, err)

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanCreditPack, loaded.Plan.PlanType)

	total, err := st.TotalUsableCredits(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}

func TestHandleHotmart_ReplayGrantsOnce(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")

	payload := map[string]string{
		"event":          "PURCHASE_APPROVED",
		"customer_email": "prof@escola.br",
		"product_id":     "pacote-50",
		"status":         "APPROVED",
		"transaction":    "HP-002",
	}
	require.NoError(t, svc.HandleHotmart(hotmartRequest(t, "test-hottok", payload)))
	require.NoError(t, svc.HandleHotmart(hotmartRequest(t, "test-hottok", payload)))

	total, err := st.TotalUsableCredits(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}

func TestHandleHotmart_Cancellation(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")
	require.NoError(t, st.UpdateUserPlan(user.ID, models.PlanMonthly, models.SubscriptionActive))

	err := svc.HandleHotmart(hotmartRequest(t, "test-hottok", map[string]string{
		"event":          "SUBSCRIPTION_CANCELLATION",
		"customer_email": "prof@escola.br",
		"product_id":     "plano-mensal",
	}))
	require.NoError(t, err)

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanMonthly, loaded.Plan.PlanType)
	assert.Equal(t, models.SubscriptionCancelled, loaded.Plan.SubscriptionStatus)
}

func TestHandleHotmart_UnknownEventIgnored(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")

	err := svc.HandleHotmart(hotmartRequest(t, "test-hottok", map[string]string{
		"event":          "PURCHASE_BILLET_PRINTED",
		"customer_email": "prof@escola.br",
		"product_id":     "pacote-50",
	}))
	require.NoError(t, err)

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFreeTrial, loaded.Plan.PlanType, "unhandled events change nothing")
}

func TestHandleHotmart_UnknownProduct(t *testing.T) {
	svc, st := newTestService(t)
	createCustomer(t, st, "prof@escola.br")

	err := svc.HandleHotmart(hotmartRequest(t, "test-hottok", map[string]string{
		"event":          "PURCHASE_APPROVED",
		"customer_email": "prof@escola.br",
		"product_id":     "produto-desconhecido",
	}))
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestHandleHotmart_MalformedPayload(t *testing.T) {
	svc, _ := newTestService(t)

	r := httptest.NewRequest(http.MethodPost, "/webhooks/hotmart", bytes.NewReader([]byte("{broken")))
	r.Header.Set("X-Hotmart-Hottok", "test-hottok")
	assert.ErrorIs(t, svc.HandleHotmart(r), ErrMalformed)

	err := svc.HandleHotmart(hotmartRequest(t, "test-hottok", map[string]string{
		"event": "PURCHASE_APPROVED",
	}))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFingerprintIsStable(t *testing.T) {
	a := fingerprint("hotmart", "PURCHASE_APPROVED", "prof@escola.br", "pacote-50", "HP-1")
	b := fingerprint("hotmart", "PURCHASE_APPROVED", "prof@escola.br", "pacote-50", "HP-1")
	c := fingerprint("hotmart", "PURCHASE_APPROVED", "prof@escola.br", "pacote-50", "HP-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Field boundaries matter: shifting characters between fields must
	// not collide.
	d := fingerprint("hotmart", "PURCHASE_APPROVED", "prof@escola.brpacote", "-50", "HP-1")
	assert.NotEqual(t, a, d)
}
