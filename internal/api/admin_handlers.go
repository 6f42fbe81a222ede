package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

type adminUser struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	GenerationsUsed    int        `json:"generations_used"`
	GenerationsLimit   int        `json:"generations_limit"`
	CreatedAt          time.Time  `json:"created_at"`
}

// AdminListUsersHandler returns a page of users for the back office.
func (api *Api) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := api.store.ListUsers(offset, limit)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser{
			ID:                 u.ID,
			Email:              u.Email,
			Plan:               string(u.Plan.PlanType),
			SubscriptionStatus: string(u.Plan.SubscriptionStatus),
			TrialEndsAt:        u.Plan.TrialEndsAt,
			GenerationsUsed:    u.Plan.GenerationsUsed,
			GenerationsLimit:   u.Plan.GenerationsLimit,
			CreatedAt:          u.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// AdminStatsHandler returns headline numbers for the back office
// dashboard.
func (api *Api) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	totalUsers, err := api.store.CountUsers()
	if err != nil {
		log.Printf("Error counting users: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	byPlan, err := api.store.CountUsersByPlan()
	if err != nil {
		log.Printf("Error counting users by plan: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	totalGenerations, err := api.store.CountUsageEvents()
	if err != nil {
		log.Printf("Error counting usage events: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":       totalUsers,
		"users_by_plan":     byPlan,
		"total_generations": totalGenerations,
	})
}

type AdminUpdatePlanRequest struct {
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	Credits            int        `json:"credits,omitempty"`
	CreditsExpiry      *time.Time `json:"credits_expiry,omitempty"`
}

// AdminUpdatePlanHandler manually moves a user to another plan, used
// for courtesy grants and support escalations.
func (api *Api) AdminUpdatePlanHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req AdminUpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	plan := models.PlanType(req.Plan)
	if !plan.Known() {
		http.Error(w, "Unknown plan type", http.StatusBadRequest)
		return
	}

	status := models.SubscriptionStatus(req.SubscriptionStatus)
	if status == "" {
		status = models.SubscriptionActive
	}

	if err := api.store.UpdateUserPlan(userID, plan, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("Error updating plan for user %s: %v", userID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if plan == models.PlanCreditPack && req.Credits > 0 {
		if _, err := api.store.AddCreditBatch(userID, req.Credits, req.CreditsExpiry); err != nil {
			log.Printf("Error granting credits to user %s: %v", userID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
