package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RequestedScopes is the fixed set of capabilities designbridge asks for.
// The surrounding application reads folders, designs, assets and brand
// templates, and writes design content for autofill exports.
var RequestedScopes = []string{
	"folder:read",
	"folder:permission:read",
	"design:meta:read",
	"design:content:read",
	"design:content:write",
	"asset:read",
	"brandtemplate:meta:read",
	"brandtemplate:content:read",
}

// ScopeString returns the requested scopes as a space-delimited string,
// the form the authorization endpoint expects.
func ScopeString() string {
	return strings.Join(RequestedScopes, " ")
}

// Token represents a token endpoint response with calculated expiry.
type Token struct {
	// AccessToken is the bearer token used for API authorization.
	AccessToken string `json:"access_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// RefreshToken is used to obtain new access tokens. The provider may
	// omit it on refresh responses; callers must retain the previous one.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the token lifetime in seconds (from the token response).
	ExpiresIn int `json:"expires_in,omitempty"`

	// ExpiresAt is the calculated absolute expiration timestamp.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Scope is the granted scope(s), space-separated.
	Scope string `json:"scope,omitempty"`
}

// SetExpiresAtFromExpiresIn calculates and sets ExpiresAt from ExpiresIn.
func (t *Token) SetExpiresAtFromExpiresIn() {
	if t.ExpiresIn > 0 && t.ExpiresAt.IsZero() {
		t.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
}

// IsExpiredWithMargin checks if the token has expired or will expire within
// the given margin.
func (t *Token) IsExpiredWithMargin(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false // Tokens without expiration don't expire
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// Scopes returns the granted scope as a slice of individual scopes.
func (t *Token) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Fields(t.Scope)
}

// ToOAuth2Token converts the Token to an oauth2.Token for compatibility
// with libraries built on golang.org/x/oauth2.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}
