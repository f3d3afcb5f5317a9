// Package logging provides the structured logging system for designbridge.
//
// It is a thin layer over Go's standard slog package that adds a subsystem
// tag to every entry and centralizes level filtering. Subsystems in use:
//
//   - **Config**: configuration loading and validation
//   - **OAuth**: authorization flows and token endpoint calls
//   - **CredStore**: encrypted credential persistence
//   - **Auth**: credential supervision and refresh
//   - **Platform**: outbound design-platform API calls
//
// SECURITY: callers must never pass token or secret values as log arguments.
// Log account identifiers, endpoints and expiry timestamps instead.
//
// Initialize once at startup:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("OAuth", "authorization flow started for account=%s", accountID)
package logging
