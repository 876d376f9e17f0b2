// Package providers implements the OAuth adapters for the external services
// PulseDash can connect to. Every adapter covers the mandatory capability set
// (consent URL, code exchange, identity fetch, connectivity check); token
// refresh is a separate capability interface because only Google supports it.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Canonical provider keys. Integration rows store a feature key (e.g. "gsc"),
// which maps onto one of these via ProviderForFeature.
const (
	KeyGoogle   = "google"
	KeyMeta     = "meta"
	KeyLinkedIn = "linkedin"
)

// Feature keys as stored on Integration rows.
const (
	FeatureGSC             = "gsc"
	FeatureGoogleAnalytics = "google_analytics"
	FeatureGoogleAds       = "google_ads"
	FeatureMetaSocial      = "meta_social"
	FeatureLinkedInSocial  = "linkedin_social"
)

// Outbound provider calls get an explicit deadline instead of relying on
// ambient platform timeouts.
const requestTimeout = 15 * time.Second

// Token is the result of a code exchange or refresh. Expiry is zero when the
// provider treats the token as long-lived.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// CheckResult is the outcome of a connectivity check.
type CheckResult struct {
	OK     bool
	Detail string
}

// Error is an upstream OAuth/API failure. Callers treat it as recoverable:
// the integration is marked errored, the request never crashes.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.Status, e.Body)
}

// Adapter is the mandatory capability set of a provider.
type Adapter interface {
	Key() string
	BuildAuthURL(state, feature, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error)
	FetchIdentity(ctx context.Context, accessToken string) (string, error)
	CheckConnection(ctx context.Context, accessToken string) (CheckResult, error)
}

// Refresher is the optional refresh capability. Dispatch on presence of this
// interface, not on the provider name.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// ErrUnknownFeature is returned for a feature no provider serves.
var ErrUnknownFeature = errors.New("providers: unknown feature")

// ProviderForFeature maps an integration feature to its provider key.
func ProviderForFeature(feature string) (string, error) {
	switch feature {
	case FeatureGSC, FeatureGoogleAnalytics, FeatureGoogleAds:
		return KeyGoogle, nil
	case FeatureMetaSocial:
		return KeyMeta, nil
	case FeatureLinkedInSocial:
		return KeyLinkedIn, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// withHTTPClient makes x/oauth2 use the adapter's client for token endpoint
// calls, so timeouts and test fakes apply there too.
func withHTTPClient(ctx context.Context, c *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c)
}

// retrieveErr converts an x/oauth2 token endpoint failure into *Error.
func retrieveErr(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &Error{Status: status, Body: string(re.Body)}
	}
	return err
}
