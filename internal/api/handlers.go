package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/explicae-app/explicae/internal/auth"
	"github.com/explicae-app/explicae/internal/generation"
	"github.com/explicae-app/explicae/internal/models"
)

type GenerateRequest struct {
	Concept  string `json:"concept"`
	Audience string `json:"audience"`
}

type GenerateResponse struct {
	Analogies []string             `json:"analogies"`
	Usage     models.UsageSnapshot `json:"usage"`
}

// DeniedResponse is returned with status 403 when the caller is out of
// generations. RedirectTo tells the frontend where to send the user to
// unblock themselves.
type DeniedResponse struct {
	Error      string               `json:"error"`
	Message    string               `json:"message"`
	RedirectTo string               `json:"redirectTo,omitempty"`
	Usage      models.UsageSnapshot `json:"usage"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// identify resolves the caller to a user id or an anonymous id. A new
// anonymous id is minted and set as a cookie when none exists yet.
func (api *Api) identify(w http.ResponseWriter, r *http.Request) (userID, anonymousID string) {
	if p, ok := auth.GetPrincipal(r.Context()); ok && p.Authenticated() {
		return p.UserID, ""
	}
	return "", auth.GetOrCreateAnonymousID(w, r, api.Config.Domains.Secure)
}

// GenerateHandler runs one generation for the caller, anonymous or not.
func (api *Api) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	req.Concept = strings.TrimSpace(req.Concept)
	req.Audience = strings.TrimSpace(req.Audience)
	if req.Concept == "" {
		http.Error(w, "Concept is required", http.StatusBadRequest)
		return
	}

	userID, anonymousID := api.identify(w, r)

	result, err := api.orchestrator.Generate(r.Context(), generation.Request{
		Concept:     req.Concept,
		Audience:    req.Audience,
		UserID:      userID,
		AnonymousID: anonymousID,
	})
	if err != nil {
		var denied *generation.DeniedError
		if errors.As(err, &denied) {
			generationsTotal.WithLabelValues("denied").Inc()
			writeJSON(w, http.StatusForbidden, deniedResponse(denied.Decision))
			return
		}
		generationsTotal.WithLabelValues("error").Inc()
		log.Printf("Generation failed: %v", err)
		http.Error(w, "Generation failed, please try again", http.StatusInternalServerError)
		return
	}

	generationsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, GenerateResponse{
		Analogies: result.Analogies,
		Usage:     result.Usage,
	})
}

// UsageHandler reports the caller's current usage without consuming
// anything.
func (api *Api) UsageHandler(w http.ResponseWriter, r *http.Request) {
	userID, anonymousID := api.identify(w, r)

	snapshot, err := api.orchestrator.Snapshot(generation.Request{
		UserID:      userID,
		AnonymousID: anonymousID,
	})
	if err != nil {
		log.Printf("Error loading usage: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func deniedResponse(d models.AccessDecision) DeniedResponse {
	resp := DeniedResponse{
		Error: string(d.Reason),
		Usage: d.Snapshot(),
	}

	switch d.Reason {
	case models.ReasonAnonymousLimitReached:
		resp.Message = "Você atingiu o limite de gerações gratuitas. Crie uma conta para continuar."
		resp.RedirectTo = "/cadastro"
	case models.ReasonTrialExpired:
		resp.Message = "Seu período de teste terminou. Escolha um plano para continuar."
		resp.RedirectTo = "/planos"
	case models.ReasonNoCredits:
		resp.Message = "Seus créditos acabaram. Compre um novo pacote para continuar."
		resp.RedirectTo = "/planos"
	case models.ReasonSubscriptionCancelled:
		resp.Message = "Sua assinatura foi cancelada. Reative para continuar."
		resp.RedirectTo = "/planos"
	case models.ReasonPaymentPending:
		resp.Message = "Seu pagamento está pendente. Assim que for confirmado, o acesso volta."
	default:
		resp.Message = "Você atingiu o limite de gerações do seu plano."
		resp.RedirectTo = "/planos"
	}

	return resp
}
