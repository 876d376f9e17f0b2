package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// One Google OAuth app covers Search Console, Analytics and Ads; only the
// requested scopes differ per feature.
var googleScopes = map[string][]string{
	FeatureGSC:             {"https://www.googleapis.com/auth/webmasters.readonly", "openid", "email", "profile"},
	FeatureGoogleAnalytics: {"https://www.googleapis.com/auth/analytics.readonly", "openid", "email", "profile"},
	FeatureGoogleAds:       {"https://www.googleapis.com/auth/adwords", "openid", "email", "profile"},
}

// Google implements Adapter and Refresher.
type Google struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	userinfoURL  string
	httpClient   *http.Client
}

func NewGoogle(clientID, clientSecret string) *Google {
	return &Google{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     googleoauth.Endpoint,
		userinfoURL:  googleUserinfoURL,
		httpClient:   newHTTPClient(),
	}
}

func (g *Google) Key() string { return KeyGoogle }

func (g *Google) config(feature, redirectURI string) *oauth2.Config {
	scopes, ok := googleScopes[feature]
	if !ok {
		scopes = googleScopes[FeatureGSC]
	}
	return &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint:     g.endpoint,
	}
}

// BuildAuthURL requests offline access with forced consent so a refresh
// token is issued on first connect.
func (g *Google) BuildAuthURL(state, feature, redirectURI string) string {
	return g.config(feature, redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	)
}

func (g *Google) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	ctx = withHTTPClient(ctx, g.httpClient)
	tok, err := g.config("", redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, retrieveErr(err)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// Refresh exchanges a stored refresh token for a fresh access token.
func (g *Google) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx = withHTTPClient(ctx, g.httpClient)
	src := g.config("", "").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, retrieveErr(err)
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken, // set only when Google rotates it
		Expiry:       tok.Expiry,
	}, nil
}

// FetchIdentity returns a display name for the connected Google account.
func (g *Google) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	info, err := g.userinfo(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if info.Name != "" {
		return info.Name, nil
	}
	if info.Email != "" {
		return info.Email, nil
	}
	return "Google Account", nil
}

// CheckConnection verifies the token against the userinfo endpoint.
func (g *Google) CheckConnection(ctx context.Context, accessToken string) (CheckResult, error) {
	info, err := g.userinfo(ctx, accessToken)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return CheckResult{OK: false, Detail: "Token invalid or expired"}, nil
		}
		return CheckResult{}, err
	}
	if info.Email == "" {
		return CheckResult{OK: false, Detail: "Token invalid or expired"}, nil
	}
	return CheckResult{OK: true}, nil
}

type googleUserinfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *Google) userinfo(ctx context.Context, accessToken string) (*googleUserinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Status: resp.StatusCode, Body: string(body)}
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
