package handlers

import (
	"log"
	"net/http"

	"github.com/pulsedash/pulsedash/internal/integrations"
	"github.com/pulsedash/pulsedash/internal/providers"
	"github.com/pulsedash/pulsedash/internal/providers/catalog"
)

type providerView struct {
	catalog.Entry
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

// ProvidersHandler lists the catalog, annotated with whether each provider
// has OAuth credentials configured and whether this account already
// connected it.
func ProvidersHandler(cat *catalog.Catalog, registry *providers.Registry, store *integrations.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := cat.List()
		if section := r.URL.Query().Get("section"); section != "" {
			entries = cat.ForSection(section)
		}

		connected := map[string]bool{}
		list, err := store.List(accountID(r))
		if err != nil {
			log.Printf("providers: failed to load integrations: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list providers")
			return
		}
		for _, i := range list {
			connected[i.Provider] = true
		}

		views := make([]providerView, 0, len(entries))
		for _, entry := range entries {
			configured := false
			if key, err := providers.ProviderForFeature(entry.ID); err == nil {
				configured = registry.Configured(key)
			}
			views = append(views, providerView{
				Entry:      entry,
				Configured: configured,
				Connected:  connected[entry.ID],
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"providers": views,
			"count":     len(views),
		})
	}
}
