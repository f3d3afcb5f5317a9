// Package oauth implements the OAuth 2.0 protocol pieces designbridge needs
// to obtain delegated access to the design platform: PKCE generation, the
// authorization URL builder, and the token endpoint client for the
// authorization_code and refresh_token grants.
//
// The package is deliberately transport-only. Persistence lives in
// internal/credstore, refresh scheduling in internal/auth, and API call
// wrapping in internal/platform.
//
// Token endpoint failures are reported as typed errors (*ExchangeError,
// *RefreshError) carrying the provider's HTTP status and response body so
// callers can distinguish a revoked grant from a transient outage.
package oauth
