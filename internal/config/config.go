// Package config loads designbridge configuration from the environment.
//
// All secrets (OAuth client credentials, the credential-store encryption
// secret) must be supplied by the operator; absence of the client identifier
// or secret prevents the authorization flow from starting at all rather than
// failing at callback time.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"designbridge/pkg/logging"
	"designbridge/pkg/oauth"
)

// ErrNotConfigured indicates missing client credentials. It is fatal to
// starting the authorization flow and not retryable.
var ErrNotConfigured = errors.New("oauth client credentials not configured")

const (
	// DefaultAuthorizeEndpoint is the design platform's authorization endpoint.
	DefaultAuthorizeEndpoint = "https://www.canva.com/api/oauth/authorize"

	// DefaultTokenEndpoint is the design platform's token endpoint.
	DefaultTokenEndpoint = "https://api.canva.com/rest/v1/oauth/token"

	// DefaultAPIBaseURL is the base URL for design platform REST calls.
	DefaultAPIBaseURL = "https://api.canva.com/rest"

	// DefaultCallbackPort is the port for the local OAuth callback server.
	DefaultCallbackPort = 3000

	// DefaultCredentialsFile is the credential store location, relative to
	// the user's home directory.
	DefaultCredentialsFile = ".config/designbridge/credentials.enc"

	// DefaultHTTPTimeout bounds every outbound network call.
	DefaultHTTPTimeout = 30 * time.Second
)

// Config holds the configuration surface consumed by the credential
// subsystem.
type Config struct {
	// ClientID is the OAuth client identifier registered with the platform.
	ClientID string

	// ClientSecret is the OAuth client secret.
	ClientSecret string

	// RedirectURI is the registered OAuth callback URI.
	RedirectURI string

	// EncryptionSecret keys the credential store. The store derives the
	// actual cipher key from it with a one-way hash, so it can be any length.
	EncryptionSecret string

	// CredentialsFile is the path of the encrypted credential store.
	CredentialsFile string

	// AuthorizeEndpoint, TokenEndpoint and APIBaseURL identify the platform.
	AuthorizeEndpoint string
	TokenEndpoint     string
	APIBaseURL        string

	// CallbackPort is the port for the local OAuth callback server used by
	// the CLI login flow.
	CallbackPort int

	// HTTPTimeout bounds token endpoint and platform API calls.
	HTTPTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present (development convenience); real
// environment variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Config", "Loaded environment from .env file")
	}

	cfg := &Config{
		ClientID:          os.Getenv("DESIGNBRIDGE_CLIENT_ID"),
		ClientSecret:      os.Getenv("DESIGNBRIDGE_CLIENT_SECRET"),
		RedirectURI:       os.Getenv("DESIGNBRIDGE_REDIRECT_URI"),
		EncryptionSecret:  os.Getenv("DESIGNBRIDGE_ENCRYPTION_SECRET"),
		CredentialsFile:   os.Getenv("DESIGNBRIDGE_CREDENTIALS_FILE"),
		AuthorizeEndpoint: envOrDefault("DESIGNBRIDGE_AUTHORIZE_URL", DefaultAuthorizeEndpoint),
		TokenEndpoint:     envOrDefault("DESIGNBRIDGE_TOKEN_URL", DefaultTokenEndpoint),
		APIBaseURL:        envOrDefault("DESIGNBRIDGE_API_BASE_URL", DefaultAPIBaseURL),
		CallbackPort:      DefaultCallbackPort,
		HTTPTimeout:       DefaultHTTPTimeout,
	}

	if v := os.Getenv("DESIGNBRIDGE_CALLBACK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid DESIGNBRIDGE_CALLBACK_PORT %q", v)
		}
		cfg.CallbackPort = port
	}

	if cfg.CredentialsFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.CredentialsFile = filepath.Join(homeDir, DefaultCredentialsFile)
	}

	if cfg.RedirectURI == "" {
		cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", cfg.CallbackPort)
	}

	return cfg, nil
}

// Validate fails fast when the configuration cannot support the
// authorization flow.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: set DESIGNBRIDGE_CLIENT_ID and DESIGNBRIDGE_CLIENT_SECRET", ErrNotConfigured)
	}
	if c.EncryptionSecret == "" {
		return errors.New("credential store encryption secret not configured: set DESIGNBRIDGE_ENCRYPTION_SECRET")
	}
	return nil
}

// OAuth returns the provider configuration for the token exchange client.
func (c *Config) OAuth() oauth.Config {
	return oauth.Config{
		ClientID:          c.ClientID,
		ClientSecret:      c.ClientSecret,
		RedirectURI:       c.RedirectURI,
		AuthorizeEndpoint: c.AuthorizeEndpoint,
		TokenEndpoint:     c.TokenEndpoint,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
