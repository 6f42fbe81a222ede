package billing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explicae-app/explicae/internal/models"
)

// signStripePayload builds a Stripe-Signature header the way Stripe's
// servers do: HMAC-SHA256 over "<timestamp>.<payload>".
func signStripePayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func stripeRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Stripe-Signature", signStripePayload(payload, secret, time.Now()))
	return r
}

func TestHandleStripe_RejectsBadSignature(t *testing.T) {
	svc, _ := newTestService(t)

	payload := []byte(`{"id": "evt_1", "type": "checkout.session.completed"}`)
	err := svc.HandleStripe(stripeRequest(t, payload, "whsec_wrong"))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestHandleStripe_CheckoutCompleted(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")

	payload := []byte(`{
		"id": "evt_checkout_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"client_reference_id": "plano-mensal",
				"customer_details": {"email": "prof@escola.br"}
			}
		}
	}`)

	require.NoError(t, svc.HandleStripe(stripeRequest(t, payload, "whsec_test")))

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanMonthly, loaded.Plan.PlanType)
	assert.Equal(t, models.SubscriptionActive, loaded.Plan.SubscriptionStatus)
}

func TestHandleStripe_ReplaySameEventID(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")

	payload := []byte(`{
		"id": "evt_credits_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_2",
				"client_reference_id": "pacote-50",
				"customer_details": {"email": "prof@escola.br"}
			}
		}
	}`)

	require.NoError(t, svc.HandleStripe(stripeRequest(t, payload, "whsec_test")))
	require.NoError(t, svc.HandleStripe(stripeRequest(t, payload, "whsec_test")))

	total, err := st.TotalUsableCredits(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, total, "retried delivery grants once")
}

func TestHandleStripe_SubscriptionDeleted(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")
	require.NoError(t, st.UpdateUserPlan(user.ID, models.PlanMonthly, models.SubscriptionActive))

	payload := []byte(`{
		"id": "evt_sub_del_1",
		"type": "customer.subscription.deleted",
		"data": {
			"object": {
				"id": "sub_1",
				"metadata": {"customer_email": "prof@escola.br", "product_id": "plano-mensal"}
			}
		}
	}`)

	require.NoError(t, svc.HandleStripe(stripeRequest(t, payload, "whsec_test")))

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, loaded.Plan.SubscriptionStatus)
}

func TestHandleStripe_IgnoresOtherEvents(t *testing.T) {
	svc, st := newTestService(t)
	user := createCustomer(t, st, "prof@escola.br")

	payload := []byte(`{"id": "evt_other", "type": "invoice.paid", "data": {"object": {}}}`)
	require.NoError(t, svc.HandleStripe(stripeRequest(t, payload, "whsec_test")))

	loaded, err := st.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFreeTrial, loaded.Plan.PlanType)
}
