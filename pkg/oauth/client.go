package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"designbridge/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for token endpoint requests.
const DefaultHTTPTimeout = 30 * time.Second

// Config carries the provider and client registration details for one
// OAuth integration.
type Config struct {
	// ClientID is the registered client identifier.
	ClientID string

	// ClientSecret is the registered client secret (confidential client).
	ClientSecret string

	// RedirectURI is the registered callback URI.
	RedirectURI string

	// AuthorizeEndpoint is the provider's authorization endpoint.
	AuthorizeEndpoint string

	// TokenEndpoint is the provider's token endpoint.
	TokenEndpoint string
}

// ExchangeError indicates the provider rejected an authorization code
// exchange (code expired, already used, or wrong verifier).
type ExchangeError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed with status %d: %s", e.StatusCode, e.Body)
}

// RefreshError indicates the provider rejected a refresh_token grant.
// A 4xx status commonly means the refresh token was revoked or expired and
// the account needs full re-authorization; 5xx statuses are transient.
type RefreshError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed with status %d: %s", e.StatusCode, e.Body)
}

// Terminal reports whether the refresh failure means the grant itself is
// gone, as opposed to a transient provider problem worth retrying later.
func (e *RefreshError) Terminal() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// BuildAuthorizationURL constructs the browser redirect URL for the
// authorization endpoint. It is a pure function; the only failure modes are
// a missing client identifier or a malformed endpoint.
func BuildAuthorizationURL(cfg Config, state string, pkce *PKCEChallenge) (string, error) {
	if cfg.ClientID == "" {
		return "", errors.New("client identifier not configured")
	}

	authURL, err := url.Parse(cfg.AuthorizeEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := authURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", cfg.ClientID)
	query.Set("redirect_uri", cfg.RedirectURI)
	query.Set("scope", ScopeString())
	query.Set("state", state)
	query.Set("code_challenge", pkce.CodeChallenge)
	query.Set("code_challenge_method", pkce.CodeChallengeMethod)

	authURL.RawQuery = query.Encode()
	return authURL.String(), nil
}

// Client performs token endpoint calls against the design platform.
type Client struct {
	httpClient *http.Client
}

// ClientOption configures the token exchange client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new token exchange client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ExchangeCode trades an authorization code plus the original PKCE verifier
// for an initial credential set.
func (c *Client) ExchangeCode(ctx context.Context, cfg Config, code, codeVerifier string) (*Token, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"redirect_uri":  {cfg.RedirectURI},
	}

	token, status, body, err := c.doTokenRequest(ctx, cfg.TokenEndpoint, data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		logging.Debug("OAuth", "Code exchange rejected: status=%d", status)
		return nil, &ExchangeError{StatusCode: status, Body: body}
	}

	logging.Debug("OAuth", "Exchanged authorization code (expires_in=%d)", token.ExpiresIn)
	return token, nil
}

// Refresh trades a refresh token for a renewed credential set.
// If the provider omits a new refresh token, Token.RefreshToken is empty and
// the caller must retain the previous value.
func (c *Client) Refresh(ctx context.Context, cfg Config, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token available")
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}

	token, status, body, err := c.doTokenRequest(ctx, cfg.TokenEndpoint, data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		logging.Debug("OAuth", "Token refresh rejected: status=%d", status)
		return nil, &RefreshError{StatusCode: status, Body: body}
	}

	logging.Debug("OAuth", "Refreshed token (expires_in=%d, rotated_refresh=%t)",
		token.ExpiresIn, token.RefreshToken != "")
	return token, nil
}

// doTokenRequest performs a form-encoded POST to the token endpoint.
// A non-nil error means the request itself failed (network, decode); HTTP
// error statuses are returned to the caller for grant-specific wrapping.
func (c *Client) doTokenRequest(ctx context.Context, tokenEndpoint string, data url.Values) (*Token, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, string(body), nil
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, 0, "", fmt.Errorf("failed to parse token response: %w", err)
	}

	token.SetExpiresAtFromExpiresIn()

	return &token, resp.StatusCode, "", nil
}
