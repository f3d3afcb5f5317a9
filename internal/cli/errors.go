// Package cli holds the typed errors the command layer maps to semantic
// exit codes, so scripts can distinguish "please authenticate" from
// "please re-authenticate" from plain failures.
package cli

import "fmt"

// AuthRequiredError indicates no credentials exist for the account and the
// user must run the authorization flow.
type AuthRequiredError struct {
	Account string
}

// Error implements the error interface.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("not authenticated for account %q: run 'designbridge auth login'", e.Account)
}

// AuthExpiredError indicates the stored grant was revoked or expired and
// the user must re-run the full authorization flow.
type AuthExpiredError struct {
	Account string
	Reason  error
}

// Error implements the error interface.
func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("authentication expired for account %q: run 'designbridge auth login' again", e.Account)
}

// Unwrap returns the underlying cause.
func (e *AuthExpiredError) Unwrap() error {
	return e.Reason
}

// AuthFailedError indicates the authorization flow itself failed.
type AuthFailedError struct {
	Account string
	Reason  error
}

// Error implements the error interface.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("authentication failed for account %q: %v", e.Account, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}
