package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/explicae-app/explicae/internal/auth"
	"github.com/explicae-app/explicae/internal/models"
	"github.com/explicae-app/explicae/internal/store"
)

type SaveAnalogyRequest struct {
	Concept  string `json:"concept"`
	Audience string `json:"audience"`
	Content  string `json:"content"`
}

// SaveAnalogyHandler stores a generated analogy in the caller's library.
func (api *Api) SaveAnalogyHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.GetPrincipal(r.Context())

	var req SaveAnalogyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Concept) == "" || strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Concept and content are required", http.StatusBadRequest)
		return
	}

	analogy, err := api.store.SaveAnalogy(&models.Analogy{
		UserID:   p.UserID,
		Concept:  req.Concept,
		Audience: req.Audience,
		Content:  req.Content,
	})
	if err != nil {
		log.Printf("Error saving analogy: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, analogy)
}

func (api *Api) ListAnalogiesHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.GetPrincipal(r.Context())

	analogies, err := api.store.ListAnalogies(p.UserID)
	if err != nil {
		log.Printf("Error listing analogies: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if analogies == nil {
		analogies = []*models.Analogy{}
	}

	writeJSON(w, http.StatusOK, analogies)
}

func (api *Api) GetAnalogyHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.GetPrincipal(r.Context())

	analogy, err := api.store.GetAnalogy(chi.URLParam(r, "id"), p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading analogy: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, analogy)
}

func (api *Api) DeleteAnalogyHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.GetPrincipal(r.Context())

	if err := api.store.DeleteAnalogy(chi.URLParam(r, "id"), p.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting analogy: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AnalogyQRHandler renders a QR code pointing at the analogy's share
// page, for teachers projecting in a classroom.
func (api *Api) AnalogyQRHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	// Ownership check before rendering anything.
	if _, err := api.store.GetAnalogy(id, p.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading analogy: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	scheme := "http"
	if api.Config.Domains.Secure {
		scheme = "https"
	}
	shareURL := fmt.Sprintf("%s://%s/a/%s", scheme, api.Config.Domains.App, id)

	png, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
	if err != nil {
		log.Printf("Error encoding QR code: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ExportLibraryHandler uploads the caller's library to object storage
// and returns a time-limited download link.
func (api *Api) ExportLibraryHandler(w http.ResponseWriter, r *http.Request) {
	if api.exporter == nil {
		http.Error(w, "Exports are not configured", http.StatusServiceUnavailable)
		return
	}

	p, _ := auth.GetPrincipal(r.Context())

	analogies, err := api.store.ListAnalogies(p.UserID)
	if err != nil {
		log.Printf("Error listing analogies for export: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	deref := make([]models.Analogy, 0, len(analogies))
	for _, a := range analogies {
		deref = append(deref, *a)
	}

	result, err := api.exporter.ExportLibrary(r.Context(), p.UserID, deref)
	if err != nil {
		log.Printf("Error exporting library: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":          result.Key,
		"size":         result.Size,
		"download_url": result.DownloadURL,
	})
}
