package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// Meta (Facebook + Instagram), Graph API v18.
const (
	metaAuthURL  = "https://www.facebook.com/v18.0/dialog/oauth"
	metaTokenURL = "https://graph.facebook.com/v18.0/oauth/access_token"
	metaGraphURL = "https://graph.facebook.com"
)

var metaScopes = []string{
	"pages_read_engagement",
	"instagram_basic",
	"ads_read",
	"business_management",
	"public_profile",
	"email",
}

// Meta implements Adapter. Meta tokens are treated as long-lived; there is
// no refresh capability.
type Meta struct {
	appID      string
	appSecret  string
	endpoint   oauth2.Endpoint
	graphURL   string
	httpClient *http.Client
}

func NewMeta(appID, appSecret string) *Meta {
	return &Meta{
		appID:     appID,
		appSecret: appSecret,
		endpoint: oauth2.Endpoint{
			AuthURL:   metaAuthURL,
			TokenURL:  metaTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		graphURL:   metaGraphURL,
		httpClient: newHTTPClient(),
	}
}

func (m *Meta) Key() string { return KeyMeta }

func (m *Meta) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.appID,
		ClientSecret: m.appSecret,
		RedirectURL:  redirectURI,
		Scopes:       metaScopes,
		Endpoint:     m.endpoint,
	}
}

// BuildAuthURL ignores feature; Meta has a single scope set.
func (m *Meta) BuildAuthURL(state, _, redirectURI string) string {
	return m.config(redirectURI).AuthCodeURL(state)
}

func (m *Meta) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	ctx = withHTTPClient(ctx, m.httpClient)
	tok, err := m.config(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, retrieveErr(err)
	}
	return &Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}

func (m *Meta) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	info, err := m.me(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if info.Name != "" {
		return info.Name, nil
	}
	if info.Email != "" {
		return info.Email, nil
	}
	return "Meta Account", nil
}

func (m *Meta) CheckConnection(ctx context.Context, accessToken string) (CheckResult, error) {
	info, err := m.me(ctx, accessToken)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return CheckResult{OK: false, Detail: "Meta token invalid or expired"}, nil
		}
		return CheckResult{}, err
	}
	if info.ID == "" {
		return CheckResult{OK: false, Detail: "Meta token invalid or expired"}, nil
	}
	return CheckResult{OK: true}, nil
}

type metaProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (m *Meta) me(ctx context.Context, accessToken string) (*metaProfile, error) {
	u := fmt.Sprintf("%s/me?fields=id,name,email&access_token=%s", m.graphURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Status: resp.StatusCode, Body: string(body)}
	}

	var info metaProfile
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode graph profile: %w", err)
	}
	return &info, nil
}
