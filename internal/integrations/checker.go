package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/providers"
	"github.com/pulsedash/pulsedash/internal/vault"
)

// Property URL pings get a tight deadline; a slow site is not an errored
// integration, but we cannot block the request on it either.
const pingTimeout = 8 * time.Second

// Result is what a health check persisted and returns to the caller.
type Result struct {
	OK               bool   `json:"ok"`
	ConnectionStatus string `json:"connection_status"`
	LastCheckedAt    string `json:"last_checked_at"`
	LastError        string `json:"last_error,omitempty"`
}

// Checker verifies that an integration's credentials still work and records
// the outcome on the row. Repeated checks are safe; each one overwrites the
// previous status with a fresh timestamp so staleness stays observable.
type Checker struct {
	store    *Store
	vault    *vault.Vault
	registry *providers.Registry
	pinger   *http.Client
	now      func() time.Time
}

func NewChecker(store *Store, v *vault.Vault, registry *providers.Registry) *Checker {
	return &Checker{
		store:    store,
		vault:    v,
		registry: registry,
		pinger:   &http.Client{Timeout: pingTimeout},
		now:      time.Now,
	}
}

// Check runs the health state machine for one integration:
// ping when no credentials are stored, otherwise decrypt, refresh if the
// token expired and the provider can refresh, then verify upstream. The
// outcome is always persisted before it is returned.
func (c *Checker) Check(ctx context.Context, accountID, id string) (*Result, error) {
	integration, err := c.store.Get(accountID, id)
	if err != nil {
		return nil, err
	}

	checkedAt := c.now().UTC().Format(time.RFC3339)

	if integration.EncryptedAccessToken == "" {
		return c.pingProperty(accountID, integration, checkedAt)
	}

	accessToken, err := c.vault.Decrypt(integration.EncryptedAccessToken)
	if err != nil {
		return c.persist(accountID, id, Result{
			ConnectionStatus: models.ConnectionError,
			LastCheckedAt:    checkedAt,
			LastError:        "Credentials corrupted. Please reconnect.",
		})
	}

	adapter, adapterErr := c.registry.ForFeature(integration.Provider)

	// Expired token: refresh first when the provider supports it and a
	// refresh token is on file. Meta and LinkedIn tokens are long-lived and
	// simply fail verification once dead.
	if integration.TokenExpiry != nil && !integration.TokenExpiry.After(c.now()) && adapterErr == nil {
		if refresher, ok := adapter.(providers.Refresher); ok && integration.EncryptedRefreshToken != "" {
			refreshed, err := c.refresh(ctx, refresher, integration)
			if err != nil {
				return c.persist(accountID, id, Result{
					ConnectionStatus: models.ConnectionError,
					LastCheckedAt:    checkedAt,
					LastError:        "Token refresh failed. Please reconnect.",
				})
			}
			accessToken = refreshed
		}
	}

	if adapterErr != nil {
		detail := "Unknown provider"
		if errors.Is(adapterErr, providers.ErrNotConfigured) {
			detail = "Provider not configured"
		}
		return c.persist(accountID, id, Result{
			ConnectionStatus: models.ConnectionError,
			LastCheckedAt:    checkedAt,
			LastError:        detail,
		})
	}

	check, err := adapter.CheckConnection(ctx, accessToken)
	if err != nil {
		check = providers.CheckResult{OK: false, Detail: err.Error()}
	}

	result := Result{
		OK:               check.OK,
		ConnectionStatus: models.ConnectionOK,
		LastCheckedAt:    checkedAt,
	}
	if !check.OK {
		result.ConnectionStatus = models.ConnectionError
		result.LastError = check.Detail
		if result.LastError == "" {
			result.LastError = "Check failed"
		}
	}
	return c.persist(accountID, id, result)
}

// pingProperty handles the legacy manual-connect path: a HEAD request to the
// stored property URL, ok iff the status is below 500.
func (c *Checker) pingProperty(accountID string, integration *models.Integration, checkedAt string) (*Result, error) {
	target := integration.ExternalPropertyID
	if target == "" {
		return c.persist(accountID, integration.ID, Result{
			ConnectionStatus: models.ConnectionError,
			LastCheckedAt:    checkedAt,
			LastError:        "No credentials. Please reconnect via OAuth.",
		})
	}
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}

	resp, err := c.pinger.Head(target)
	if err != nil {
		return c.persist(accountID, integration.ID, Result{
			ConnectionStatus: models.ConnectionError,
			LastCheckedAt:    checkedAt,
			LastError:        err.Error(),
		})
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return c.persist(accountID, integration.ID, Result{
			ConnectionStatus: models.ConnectionError,
			LastCheckedAt:    checkedAt,
			LastError:        fmt.Sprintf("HTTP %d", resp.StatusCode),
		})
	}
	return c.persist(accountID, integration.ID, Result{
		OK:               true,
		ConnectionStatus: models.ConnectionOK,
		LastCheckedAt:    checkedAt,
	})
}

// refresh exchanges the stored refresh token and persists the new encrypted
// access token and expiry before verification continues.
func (c *Checker) refresh(ctx context.Context, refresher providers.Refresher, integration *models.Integration) (string, error) {
	refreshToken, err := c.vault.Decrypt(integration.EncryptedRefreshToken)
	if err != nil {
		return "", err
	}
	tok, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry
		expiry = &e
	}
	if err := c.store.SaveRefreshedToken(integration.ID, tok.AccessToken, tok.RefreshToken, expiry); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Checker) persist(accountID, id string, result Result) (*Result, error) {
	meta := models.IntegrationMeta{
		ConnectionStatus: result.ConnectionStatus,
		LastCheckedAt:    result.LastCheckedAt,
		LastError:        result.LastError,
	}
	if err := c.store.UpdateMeta(accountID, id, meta); err != nil {
		return nil, err
	}
	return &result, nil
}
