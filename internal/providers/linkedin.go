package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const (
	linkedinAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinAPIURL   = "https://api.linkedin.com"
)

var linkedinScopes = []string{
	"r_basicprofile",
	"r_emailaddress",
	"r_organization_social",
	"rw_ads",
}

// LinkedIn implements Adapter. LinkedIn does not hand out refresh tokens in
// this design; tokens are treated as long-lived until a check fails.
type LinkedIn struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	apiURL       string
	httpClient   *http.Client
}

func NewLinkedIn(clientID, clientSecret string) *LinkedIn {
	return &LinkedIn{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint: oauth2.Endpoint{
			AuthURL:  linkedinAuthURL,
			TokenURL: linkedinTokenURL,
			// LinkedIn wants client credentials in the POST body.
			AuthStyle: oauth2.AuthStyleInParams,
		},
		apiURL:     linkedinAPIURL,
		httpClient: newHTTPClient(),
	}
}

func (l *LinkedIn) Key() string { return KeyLinkedIn }

func (l *LinkedIn) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     l.clientID,
		ClientSecret: l.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       linkedinScopes,
		Endpoint:     l.endpoint,
	}
}

func (l *LinkedIn) BuildAuthURL(state, _, redirectURI string) string {
	return l.config(redirectURI).AuthCodeURL(state)
}

func (l *LinkedIn) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	ctx = withHTTPClient(ctx, l.httpClient)
	tok, err := l.config(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, retrieveErr(err)
	}
	return &Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}

func (l *LinkedIn) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	profile, err := l.me(ctx, accessToken)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		return "LinkedIn Account", nil
	}
	return name, nil
}

func (l *LinkedIn) CheckConnection(ctx context.Context, accessToken string) (CheckResult, error) {
	profile, err := l.me(ctx, accessToken)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return CheckResult{OK: false, Detail: "LinkedIn token invalid or expired"}, nil
		}
		return CheckResult{}, err
	}
	if profile.FirstName == "" && profile.LastName == "" {
		return CheckResult{OK: false, Detail: "LinkedIn token invalid or expired"}, nil
	}
	return CheckResult{OK: true}, nil
}

type linkedinProfile struct {
	FirstName string `json:"localizedFirstName"`
	LastName  string `json:"localizedLastName"`
}

func (l *LinkedIn) me(ctx context.Context, accessToken string) (*linkedinProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.apiURL+"/v2/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Status: resp.StatusCode, Body: string(body)}
	}

	var profile linkedinProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}
