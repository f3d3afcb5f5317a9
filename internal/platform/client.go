package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"designbridge/pkg/logging"
)

// DefaultHTTPTimeout bounds every platform API call.
const DefaultHTTPTimeout = 30 * time.Second

// TokenSource supplies bearer credentials for one account and can force a
// renewal when the platform rejects the current token. *auth.Supervisor
// satisfies it.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, accountID string) (string, error)
	ForceRefresh(ctx context.Context, accountID string) (string, error)
}

// RemoteError is a failure status surfaced by the platform API itself.
// Non-auth statuses (not found, rate limited, server errors) never trigger
// a refresh. A 401 that persists after the one forced refresh is also
// reported this way: by then the supervisor has vouched for the token, so
// the rejection is the platform's to explain, not grounds for another
// refresh.
type RemoteError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("platform request %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client calls the design platform's REST API on behalf of one account.
type Client struct {
	baseURL    string
	accountID  string
	tokens     TokenSource
	httpClient *http.Client
}

// Option configures the platform client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a platform client for an account. baseURL is the REST
// API root (no trailing slash required).
func NewClient(baseURL, accountID string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		accountID:  accountID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// do performs one authenticated API call with the single-retry auth
// recovery. body (when non-nil) is JSON-encoded; out (when non-nil) is
// filled from the JSON response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	token, err := c.tokens.ValidAccessToken(ctx, c.accountID)
	if err != nil {
		return err
	}

	// Encode the body once so the retry can replay it.
	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	status, respBody, err := c.send(ctx, method, path, query, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		// The provider declared the token invalid; force one refresh and
		// retry exactly once.
		logging.Debug("Platform", "Received 401 for %s %s, forcing refresh for account=%s", method, path, c.accountID)

		token, err = c.tokens.ForceRefresh(ctx, c.accountID)
		if err != nil {
			return err
		}

		status, respBody, err = c.send(ctx, method, path, query, payload, token)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized {
			// No third attempt and no loop: the grant is gone.
			return &RemoteError{StatusCode: status, Method: method, Path: path, Body: string(respBody)}
		}
	}

	if status < 200 || status >= 300 {
		return &RemoteError{StatusCode: status, Method: method, Path: path, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response for %s %s: %w", method, path, err)
		}
	}

	return nil
}

// send performs a single HTTP round-trip with the given bearer token.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (int, []byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create platform request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read platform response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
