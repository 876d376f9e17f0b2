// Package state carries {account, feature, provider} across the OAuth
// redirect round trip as a short-lived signed token, so no server-side
// session storage is needed between the connect request and the callback.
package state

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TTL is the validity window of a state token.
const TTL = 10 * time.Minute

// State is the payload that survives the provider redirect.
type State struct {
	AccountID string
	Feature   string // e.g. "gsc", "google_analytics", "meta_social"
	Provider  string // "google" | "meta" | "linkedin"
}

type claims struct {
	AccountID string `json:"account_id"`
	Feature   string `json:"feature"`
	Provider  string `json:"provider"`
	jwt.RegisteredClaims
}

// Signer signs and verifies state tokens with an HMAC secret. Verification
// fails closed: expiry, signature mismatch, or a structural defect all yield
// a nil state, never an error that escapes to the redirect boundary.
type Signer struct {
	secret []byte
	now    func() time.Time

	mu       sync.Mutex
	consumed map[string]time.Time // jti -> expiry, for single-use enforcement
}

// NewSigner creates a Signer. The secret is validated at config load.
func NewSigner(secret string) *Signer {
	return &Signer{
		secret:   []byte(secret),
		now:      time.Now,
		consumed: make(map[string]time.Time),
	}
}

// Sign issues a token for s, valid for TTL from now.
func (sg *Signer) Sign(s State) (string, error) {
	now := sg.now()
	c := claims{
		AccountID: s.AccountID,
		Feature:   s.Feature,
		Provider:  s.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(sg.secret)
}

// Verify parses and validates a token. Returns nil for anything invalid.
func (sg *Signer) Verify(token string) *State {
	s, _ := sg.parse(token)
	return s
}

// VerifyAndConsume validates a token and marks it used. A second call with
// the same token returns nil, which closes the replay window at the
// callback boundary.
func (sg *Signer) VerifyAndConsume(token string) *State {
	s, jti := sg.parse(token)
	if s == nil {
		return nil
	}

	sg.mu.Lock()
	defer sg.mu.Unlock()

	now := sg.now()
	for id, exp := range sg.consumed {
		if exp.Before(now) {
			delete(sg.consumed, id)
		}
	}
	if _, used := sg.consumed[jti]; used {
		return nil
	}
	sg.consumed[jti] = now.Add(TTL)
	return s
}

func (sg *Signer) parse(token string) (*State, string) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return sg.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(func() time.Time { return sg.now() }))
	if err != nil || !parsed.Valid {
		return nil, ""
	}
	if c.AccountID == "" || c.Feature == "" || c.Provider == "" {
		return nil, ""
	}
	return &State{AccountID: c.AccountID, Feature: c.Feature, Provider: c.Provider}, c.ID
}
