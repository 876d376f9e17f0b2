package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/pulsedash/pulsedash/internal/auth/state"
	"github.com/pulsedash/pulsedash/internal/config"
	"github.com/pulsedash/pulsedash/internal/integrations"
	"github.com/pulsedash/pulsedash/internal/providers"
	"github.com/pulsedash/pulsedash/internal/providers/catalog"
	"github.com/pulsedash/pulsedash/internal/util"
)

func callbackURI(cfg *config.Config, providerKey string) string {
	return cfg.AppURL + "/api/auth/callback/" + providerKey
}

// ConnectHandler starts the OAuth consent flow for one feature. The state
// token carries the account and feature across the redirect round trip.
func ConnectHandler(cfg *config.Config, registry *providers.Registry, signer *state.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerKey := chi.URLParam(r, "provider")
		feature := r.URL.Query().Get("feature")
		if feature == "" {
			writeError(w, http.StatusBadRequest, "feature query parameter is required")
			return
		}

		wantProvider, err := providers.ProviderForFeature(feature)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown feature: "+feature)
			return
		}
		if wantProvider != providerKey {
			writeError(w, http.StatusBadRequest, "Feature "+feature+" does not belong to provider "+providerKey)
			return
		}

		adapter, err := registry.Get(providerKey)
		if err != nil {
			if errors.Is(err, providers.ErrNotConfigured) {
				writeError(w, http.StatusServiceUnavailable, "Provider "+providerKey+" is not configured")
				return
			}
			writeError(w, http.StatusBadRequest, "Unknown provider: "+providerKey)
			return
		}

		token, err := signer.Sign(state.State{
			AccountID: accountID(r),
			Feature:   feature,
			Provider:  providerKey,
		})
		if err != nil {
			log.Printf("oauth: failed to sign state: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to start OAuth flow")
			return
		}

		authURL := adapter.BuildAuthURL(token, feature, callbackURI(cfg, providerKey))
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the OAuth flow. It is a public route: the
// account is recovered from the signed state token, not from a header.
// All outcomes end in a redirect back to the integrations page.
func CallbackHandler(
	cfg *config.Config,
	registry *providers.Registry,
	signer *state.Signer,
	store *integrations.Store,
	cat *catalog.Catalog,
) http.HandlerFunc {
	redirect := func(w http.ResponseWriter, r *http.Request, query string) {
		http.Redirect(w, r, cfg.AppURL+"/integrations?"+query, http.StatusFound)
	}
	fail := func(w http.ResponseWriter, r *http.Request, message string) {
		redirect(w, r, "error="+url.QueryEscape(message))
	}

	return func(w http.ResponseWriter, r *http.Request) {
		providerKey := chi.URLParam(r, "provider")
		query := r.URL.Query()

		if denied := query.Get("error"); denied != "" {
			fail(w, r, "Access denied by provider")
			return
		}

		code := query.Get("code")
		if code == "" || query.Get("state") == "" {
			fail(w, r, "Missing code or state")
			return
		}

		st := signer.VerifyAndConsume(query.Get("state"))
		if st == nil || st.Provider != providerKey {
			fail(w, r, "Invalid or expired state")
			return
		}

		adapter, err := registry.Get(providerKey)
		if err != nil {
			fail(w, r, "Provider not configured")
			return
		}

		token, err := adapter.ExchangeCode(r.Context(), code, callbackURI(cfg, providerKey))
		if err != nil {
			log.Printf("oauth: code exchange failed for %s: %s", providerKey, util.TruncateLog(err.Error(), util.DefaultLogMaxLen))
			fail(w, r, "Token exchange failed")
			return
		}

		// Identity failure is not fatal; fall back to the catalog label.
		name, err := adapter.FetchIdentity(r.Context(), token.AccessToken)
		if err != nil || name == "" {
			name = cat.Get(st.Feature).Label
		}

		in := integrations.UpsertInput{
			AccountID:    st.AccountID,
			Provider:     st.Feature,
			Name:         name,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
		}
		if !token.Expiry.IsZero() {
			expiry := token.Expiry
			in.TokenExpiry = &expiry
		}
		if _, err := store.Upsert(in); err != nil {
			log.Printf("oauth: failed to store integration for %s: %v", st.Feature, err)
			fail(w, r, "Failed to save connection")
			return
		}

		redirect(w, r, "connected=1")
	}
}
