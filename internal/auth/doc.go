// Package auth orchestrates the credential lifecycle for designbridge.
//
// It owns the three moving parts between the raw OAuth protocol
// (pkg/oauth) and the encrypted store (internal/credstore):
//
//   - AttemptStore: short-lived, single-use records bridging an
//     authorization attempt across the browser redirect. An attempt holds
//     the PKCE verifier and the anti-forgery state and is consumed exactly
//     once at callback, then discarded regardless of outcome.
//   - Flow: begins an authorization (PKCE + state + redirect URL) and
//     completes it (state validation, code exchange, record creation).
//   - Supervisor: returns a currently valid access token for an account,
//     transparently refreshing near or after expiry. Concurrent refreshes
//     for one account are coalesced into a single flight.
//
// The surrounding application never touches tokens directly; it asks the
// Supervisor for a bearer credential and the platform client (see
// internal/platform) for authenticated calls.
package auth
