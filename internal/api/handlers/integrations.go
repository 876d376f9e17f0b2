package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/integrations"
	"gorm.io/gorm"
)

// integrationView is the API shape of an integration. Encrypted credentials
// never leave the store layer.
type integrationView struct {
	ID                 string     `json:"id"`
	Provider           string     `json:"provider"`
	ExternalPropertyID string     `json:"external_property_id,omitempty"`
	Name               string     `json:"name"`
	ClientID           string     `json:"client_id,omitempty"`
	IsActive           bool       `json:"is_active"`
	TokenExpiry        *time.Time `json:"token_expiry,omitempty"`
	ConnectionStatus   string     `json:"connection_status"`
	LastCheckedAt      string     `json:"last_checked_at,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toView(i models.Integration) integrationView {
	meta := i.Meta()
	return integrationView{
		ID:                 i.ID,
		Provider:           i.Provider,
		ExternalPropertyID: i.ExternalPropertyID,
		Name:               i.Name,
		ClientID:           i.ClientID,
		IsActive:           i.IsActive,
		TokenExpiry:        i.TokenExpiry,
		ConnectionStatus:   meta.ConnectionStatus,
		LastCheckedAt:      meta.LastCheckedAt,
		LastError:          meta.LastError,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// IntegrationsHandler lists the account's integrations.
func IntegrationsHandler(store *integrations.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(accountID(r))
		if err != nil {
			log.Printf("integrations: list failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list integrations")
			return
		}
		views := make([]integrationView, 0, len(list))
		for _, i := range list {
			views = append(views, toView(i))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"integrations": views,
			"count":        len(views),
		})
	}
}

// CreateIntegrationHandler is the legacy manual-connect path: a property
// URL without OAuth credentials, checkable only by HEAD-ping.
func CreateIntegrationHandler(store *integrations.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Provider           string `json:"provider"`
			ExternalPropertyID string `json:"external_property_id"`
			Name               string `json:"name"`
			ClientID           string `json:"client_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if body.Provider == "" {
			writeError(w, http.StatusBadRequest, "provider is required")
			return
		}

		integration, err := store.Create(accountID(r), integrations.CreateInput{
			Provider:           body.Provider,
			ExternalPropertyID: body.ExternalPropertyID,
			Name:               body.Name,
			ClientID:           body.ClientID,
		})
		if err != nil {
			log.Printf("integrations: create failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create integration")
			return
		}
		writeJSON(w, http.StatusCreated, toView(*integration))
	}
}

// IntegrationHandler returns one integration.
func IntegrationHandler(store *integrations.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		integration, err := store.Get(accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Integration not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load integration")
			return
		}
		writeJSON(w, http.StatusOK, toView(*integration))
	}
}

// DeleteIntegrationHandler disconnects an integration permanently.
func DeleteIntegrationHandler(store *integrations.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.Delete(accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Integration not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to delete integration")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}
}

// CheckIntegrationHandler runs a connection health check and returns the
// persisted outcome.
func CheckIntegrationHandler(checker *integrations.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := checker.Check(r.Context(), accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Integration not found")
			return
		}
		if err != nil {
			log.Printf("integrations: check failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Health check failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// SyncIntegrationHandler pulls metrics for a syncable integration. Only
// google_ads supports sync today.
func SyncIntegrationHandler(store *integrations.Store, database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := accountID(r)
		integration, err := store.Get(account, chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Integration not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load integration")
			return
		}
		if integration.Provider != "google_ads" {
			writeError(w, http.StatusBadRequest, "Sync is not supported for provider "+integration.Provider)
			return
		}

		created, err := integrations.SyncGoogleAdsMetrics(database, account, integration.ClientID)
		if err != nil {
			log.Printf("integrations: sync failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Sync failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":              true,
			"metrics_created": created,
		})
	}
}
