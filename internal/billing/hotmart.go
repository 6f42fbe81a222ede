package billing

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// hotmartEvent is the payload Hotmart posts on purchase lifecycle
// events. Transaction is the purchase id when present; older event
// kinds omit it, so the fingerprint falls back to the event fields.
type hotmartEvent struct {
	Event         string `json:"event"`
	CustomerEmail string `json:"customer_email"`
	ProductID     string `json:"product_id"`
	Status        string `json:"status"`
	Transaction   string `json:"transaction,omitempty"`
}

// HandleHotmart verifies the hottok header and applies the event.
func (s *Service) HandleHotmart(r *http.Request) error {
	token := r.Header.Get("X-Hotmart-Hottok")
	if s.hotmartToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.hotmartToken)) != 1 {
		return ErrBadSignature
	}

	var evt hotmartEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if evt.CustomerEmail == "" || evt.ProductID == "" {
		return fmt.Errorf("%w: missing customer_email or product_id", ErrMalformed)
	}

	fp := fingerprint("hotmart", evt.Event, evt.CustomerEmail, evt.ProductID, evt.Transaction)

	switch strings.ToUpper(evt.Event) {
	case "PURCHASE_APPROVED", "PURCHASE_COMPLETE", "SUBSCRIPTION_REACTIVATED":
		return s.applyPurchase("hotmart", fp, evt.Event, evt.CustomerEmail, evt.ProductID)
	case "SUBSCRIPTION_CANCELLATION", "PURCHASE_REFUNDED", "PURCHASE_CHARGEBACK":
		return s.applyCancellation("hotmart", fp, evt.Event, evt.CustomerEmail, evt.ProductID)
	default:
		log.Printf("Ignoring hotmart event %q for %s", evt.Event, evt.CustomerEmail)
		return nil
	}
}
