package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"designbridge/internal/credstore"
	"designbridge/pkg/logging"
	"designbridge/pkg/oauth"
)

// ErrNotAuthenticated indicates no credential record exists for the
// account. The caller should start the authorization flow, not retry.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrReauthRequired indicates the stored refresh token was rejected by the
// provider (revoked or expired). The record is unusable and the caller must
// re-run the full authorization flow.
var ErrReauthRequired = errors.New("authentication expired: re-authorization required")

// RefreshBuffer is the safety margin before expiry at which tokens are
// proactively refreshed. Five minutes covers the latency of the subsequent
// API call plus clock skew.
const RefreshBuffer = 5 * time.Minute

// refreshTimeout bounds a single refresh call. Refreshes run on a detached
// context so an impatient caller cannot abandon one mid-flight and leave
// the store inconsistent.
const refreshTimeout = 30 * time.Second

// Supervisor hands out currently valid access tokens, refreshing stored
// credentials transparently before or after expiry.
//
// Concurrent callers observing "near expiry" for the same account share a
// single in-flight refresh via singleflight, so a provider that rotates
// refresh tokens on every use never sees two competing refresh calls.
type Supervisor struct {
	cfg       oauth.Config
	exchanger *oauth.Client
	store     *credstore.Store
	group     singleflight.Group

	nowFunc func() time.Time
}

// NewSupervisor creates a supervisor over the given exchange client and
// credential store.
func NewSupervisor(cfg oauth.Config, exchanger *oauth.Client, store *credstore.Store) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		exchanger: exchanger,
		store:     store,
		nowFunc:   time.Now,
	}
}

// ValidAccessToken returns an access token that is valid for at least the
// refresh buffer. It refreshes the stored credentials first when they are
// near or past expiry.
//
// Returns ErrNotAuthenticated when no record exists, ErrReauthRequired when
// the refresh token was rejected, and the underlying error unchanged for
// transient failures the caller may retry later.
func (s *Supervisor) ValidAccessToken(ctx context.Context, accountID string) (string, error) {
	rec, err := s.store.GetToken(accountID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}

	if !s.nearExpiry(rec) {
		return rec.AccessToken, nil
	}

	logging.Debug("Auth", "Token near expiry for account=%s, refreshing", accountID)
	return s.refresh(ctx, accountID, false)
}

// ForceRefresh refreshes the stored credentials unconditionally, bypassing
// the expiry check. The platform client uses it when the provider itself
// declared the current token invalid.
func (s *Supervisor) ForceRefresh(ctx context.Context, accountID string) (string, error) {
	return s.refresh(ctx, accountID, true)
}

// OAuth2TokenSource adapts the supervisor to the oauth2.TokenSource
// contract so libraries built on golang.org/x/oauth2 can consume supervised
// credentials. Every Token call goes through the same refresh-on-demand
// path as ValidAccessToken.
func (s *Supervisor) OAuth2TokenSource(ctx context.Context, accountID string) oauth2.TokenSource {
	return &supervisedTokenSource{ctx: ctx, accountID: accountID, supervisor: s}
}

type supervisedTokenSource struct {
	ctx        context.Context
	accountID  string
	supervisor *Supervisor
}

// Token implements oauth2.TokenSource.
func (ts *supervisedTokenSource) Token() (*oauth2.Token, error) {
	if _, err := ts.supervisor.ValidAccessToken(ts.ctx, ts.accountID); err != nil {
		return nil, err
	}

	rec, err := ts.supervisor.store.GetToken(ts.accountID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotAuthenticated
	}

	token := &oauth.Token{
		AccessToken:  rec.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    time.UnixMilli(rec.ExpiresAt),
		Scope:        rec.Scope,
	}
	return token.ToOAuth2Token(), nil
}

// nearExpiry reports whether the record expires within the refresh buffer.
func (s *Supervisor) nearExpiry(rec *credstore.CredentialRecord) bool {
	return s.nowFunc().Add(RefreshBuffer).UnixMilli() >= rec.ExpiresAt
}

// refresh coalesces concurrent refreshes per account and applies the
// result to the store.
func (s *Supervisor) refresh(ctx context.Context, accountID string, force bool) (string, error) {
	result, err, shared := s.group.Do(accountID, func() (interface{}, error) {
		return s.doRefresh(ctx, accountID, force)
	})
	if err != nil {
		return "", err
	}

	if shared {
		logging.Debug("Auth", "Joined in-flight refresh for account=%s", accountID)
	}

	return result.(string), nil
}

// doRefresh performs one refresh cycle. It re-reads the record inside the
// flight so late joiners after a completed refresh do not trigger another,
// and so a logout that raced the refresh is honored.
func (s *Supervisor) doRefresh(ctx context.Context, accountID string, force bool) (string, error) {
	rec, err := s.store.GetToken(accountID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}

	// Another caller may have refreshed while we waited on the flight.
	if !force && !s.nearExpiry(rec) {
		return rec.AccessToken, nil
	}

	// Detach from the caller: once started, a refresh completes or fails on
	// its own schedule. Abandoning it mid-flight could strand a rotated
	// refresh token that was never persisted.
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()

	token, err := s.exchanger.Refresh(refreshCtx, s.cfg, rec.RefreshToken)
	if err != nil {
		var refreshErr *oauth.RefreshError
		if errors.As(err, &refreshErr) && refreshErr.Terminal() {
			logging.Warn("Auth", "Refresh token rejected for account=%s (status=%d)", accountID, refreshErr.StatusCode)
			return "", fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		// Transient: network failure or provider 5xx. Surface unchanged so
		// the caller can retry later instead of treating the account as
		// logged out.
		return "", err
	}

	updated, err := s.store.UpdateToken(accountID, credstore.TokenUpdate{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt.UnixMilli(),
		Scope:        token.Scope,
	})
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			// The account logged out while the refresh was in flight. The
			// refresh result is discarded; a refresh never resurrects a
			// deleted record.
			logging.Info("Auth", "Discarding refresh result for logged-out account=%s", accountID)
			return "", ErrNotAuthenticated
		}
		return "", err
	}

	logging.Info("Auth", "Refreshed credentials for account=%s (expires_at=%d)", accountID, updated.ExpiresAt)
	return updated.AccessToken, nil
}
