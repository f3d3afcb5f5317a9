// Package platform is the resilient client for the design platform's REST
// API. Every outbound call carries the account's current access token from
// the credential supervisor.
//
// On a 401 from the platform the client forces exactly one refresh
// (bypassing the expiry check, since the provider itself declared the token
// invalid) and retries the original request exactly once. A second 401
// surfaces to the caller; the retry budget of one bounds latency and
// prevents refresh loops when the grant has been revoked entirely.
//
// Non-auth failures (not found, rate limited, server errors) are reported
// as *RemoteError and never trigger a refresh.
package platform
