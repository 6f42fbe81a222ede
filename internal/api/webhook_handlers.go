package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/explicae-app/explicae/internal/billing"
)

// WebhookHandler dispatches payment provider callbacks. Providers
// retry on non-2xx, so only transient failures return 500; a payload
// we will never be able to process is acknowledged with 4xx.
func (api *Api) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var err error
	switch provider {
	case "hotmart":
		err = api.billing.HandleHotmart(r)
	case "stripe":
		err = api.billing.HandleStripe(r)
	default:
		http.Error(w, "Unknown provider", http.StatusNotFound)
		return
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, billing.ErrBadSignature):
		log.Printf("Webhook signature rejected: provider=%s", provider)
		http.Error(w, "Signature verification failed", http.StatusUnauthorized)
	case errors.Is(err, billing.ErrMalformed), errors.Is(err, billing.ErrUnknownProduct):
		log.Printf("Webhook rejected: provider=%s err=%v", provider, err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
	default:
		log.Printf("Webhook processing failed: provider=%s err=%v", provider, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
