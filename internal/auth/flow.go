package auth

import (
	"context"
	"errors"
	"fmt"

	"designbridge/internal/credstore"
	"designbridge/pkg/logging"
	"designbridge/pkg/oauth"
)

// Flow runs the authorization-code flow end to end: redirect URL on one
// side, state validation plus code exchange on the other.
type Flow struct {
	cfg       oauth.Config
	exchanger *oauth.Client
	store     *credstore.Store
	attempts  *AttemptStore
}

// NewFlow creates a flow over the given provider config, exchange client
// and credential store.
func NewFlow(cfg oauth.Config, exchanger *oauth.Client, store *credstore.Store) *Flow {
	return &Flow{
		cfg:       cfg,
		exchanger: exchanger,
		store:     store,
		attempts:  NewAttemptStore(),
	}
}

// Begin starts an authorization attempt for an account and returns the
// browser redirect URL. It refuses to start when the client identifier is
// missing.
func (f *Flow) Begin(accountID string) (authURL string, attempt *Attempt, err error) {
	if accountID == "" {
		return "", nil, errors.New("account id must not be empty")
	}

	attempt, err = f.attempts.Begin(accountID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create authorization attempt: %w", err)
	}

	authURL, err = oauth.BuildAuthorizationURL(f.cfg, attempt.State, &oauth.PKCEChallenge{
		CodeVerifier:        attempt.CodeVerifier,
		CodeChallenge:       attempt.CodeChallenge,
		CodeChallengeMethod: "S256",
	})
	if err != nil {
		return "", nil, err
	}

	return authURL, attempt, nil
}

// Complete handles the authorization callback: it validates the state
// against the pending attempt, exchanges the code with the original PKCE
// verifier, and persists the resulting credential record.
//
// State validation happens before any token exchange; an unknown or expired
// state aborts with ErrStateMismatch.
func (f *Flow) Complete(ctx context.Context, state, code string) (*credstore.CredentialRecord, error) {
	attempt, err := f.attempts.Consume(state)
	if err != nil {
		return nil, err
	}

	token, err := f.exchanger.ExchangeCode(ctx, f.cfg, code, attempt.CodeVerifier)
	if err != nil {
		logging.Warn("Auth", "Code exchange failed for attempt id=%s account=%s", attempt.ID, attempt.AccountID)
		return nil, err
	}

	if token.RefreshToken == "" {
		return nil, errors.New("provider returned no refresh token; cannot persist credentials")
	}

	rec := &credstore.CredentialRecord{
		AccountID:    attempt.AccountID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt.UnixMilli(),
		Scope:        token.Scope,
	}

	if err := f.store.StoreToken(attempt.AccountID, rec); err != nil {
		return nil, err
	}

	logging.Info("Auth", "Authorization completed for account=%s", attempt.AccountID)
	return rec, nil
}

// Close stops the flow's background attempt cleanup.
func (f *Flow) Close() {
	f.attempts.Stop()
}
