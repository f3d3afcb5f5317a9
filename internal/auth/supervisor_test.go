package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designbridge/internal/credstore"
	"designbridge/pkg/oauth"
)

// supervisorFixture wires a supervisor against a fake token endpoint and a
// temp-dir credential store.
type supervisorFixture struct {
	store      *credstore.Store
	supervisor *Supervisor
	refreshes  atomic.Int32
}

// newSupervisorFixture builds the fixture. handler serves the token
// endpoint; a nil handler serves a standard refresh response rotating
// nothing.
func newSupervisorFixture(t *testing.T, handler http.HandlerFunc) *supervisorFixture {
	t.Helper()

	f := &supervisorFixture{}

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "at-refreshed", "expires_in": 7200}`))
		}
	}

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		handler(w, r)
	}))
	t.Cleanup(provider.Close)

	store, err := credstore.NewStore(filepath.Join(t.TempDir(), "credentials.enc"), "test-secret")
	require.NoError(t, err)
	f.store = store

	cfg := oauth.Config{
		ClientID:      "test-client",
		ClientSecret:  "test-secret",
		TokenEndpoint: provider.URL,
	}
	f.supervisor = NewSupervisor(cfg, oauth.NewClient(oauth.WithHTTPClient(provider.Client())), store)

	return f
}

// seed stores a record for "default" expiring at the given instant.
func (f *supervisorFixture) seed(t *testing.T, expiresAt time.Time) {
	t.Helper()

	err := f.store.StoreToken("default", &credstore.CredentialRecord{
		AccessToken:  "at-original",
		RefreshToken: "rt-original",
		ExpiresAt:    expiresAt.UnixMilli(),
	})
	require.NoError(t, err)
}

func TestValidAccessToken_NotAuthenticated(t *testing.T) {
	f := newSupervisorFixture(t, nil)

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, int32(0), f.refreshes.Load())
}

func TestValidAccessToken_FreshTokenReturnedDirectly(t *testing.T) {
	f := newSupervisorFixture(t, nil)
	f.seed(t, time.Now().Add(time.Hour))

	token, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)

	assert.Equal(t, "at-original", token)
	assert.Equal(t, int32(0), f.refreshes.Load())
}

func TestValidAccessToken_RefreshBufferBoundary(t *testing.T) {
	tests := []struct {
		name        string
		untilExpiry time.Duration
		wantRefresh bool
	}{
		{name: "already expired", untilExpiry: -time.Minute, wantRefresh: true},
		{name: "just inside buffer", untilExpiry: 299 * time.Second, wantRefresh: true},
		{name: "exactly at buffer", untilExpiry: RefreshBuffer, wantRefresh: true},
		{name: "just outside buffer", untilExpiry: 301 * time.Second, wantRefresh: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSupervisorFixture(t, nil)

			now := time.Now()
			f.supervisor.nowFunc = func() time.Time { return now }
			f.seed(t, now.Add(tt.untilExpiry))

			token, err := f.supervisor.ValidAccessToken(context.Background(), "default")
			require.NoError(t, err)

			if tt.wantRefresh {
				assert.Equal(t, "at-refreshed", token)
				assert.Equal(t, int32(1), f.refreshes.Load())
			} else {
				assert.Equal(t, "at-original", token)
				assert.Equal(t, int32(0), f.refreshes.Load())
			}
		})
	}
}

func TestValidAccessToken_RefreshExtendsExpiry(t *testing.T) {
	f := newSupervisorFixture(t, nil)

	oldExpiry := time.Now().Add(time.Minute)
	f.seed(t, oldExpiry)

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)

	rec, err := f.store.GetToken("default")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Greater(t, rec.ExpiresAt, oldExpiry.UnixMilli())
}

func TestValidAccessToken_RetainsRefreshTokenWhenNotRotated(t *testing.T) {
	f := newSupervisorFixture(t, nil)
	f.seed(t, time.Now().Add(time.Minute))

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)

	rec, err := f.store.GetToken("default")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "rt-original", rec.RefreshToken)
}

func TestValidAccessToken_PersistsRotatedRefreshToken(t *testing.T) {
	f := newSupervisorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "at-refreshed", "refresh_token": "rt-rotated", "expires_in": 7200}`))
	})
	f.seed(t, time.Now().Add(time.Minute))

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)

	rec, err := f.store.GetToken("default")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "rt-rotated", rec.RefreshToken)
}

func TestValidAccessToken_RevokedGrantRequiresReauth(t *testing.T) {
	f := newSupervisorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	f.seed(t, time.Now().Add(time.Minute))

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	assert.ErrorIs(t, err, ErrReauthRequired)

	// The stale record survives; login will overwrite it
	rec, err := f.store.GetToken("default")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestValidAccessToken_ProviderOutageIsTransient(t *testing.T) {
	f := newSupervisorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	f.seed(t, time.Now().Add(time.Minute))

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	require.Error(t, err)

	// A 5xx must not demand re-authorization
	assert.NotErrorIs(t, err, ErrReauthRequired)
	assert.NotErrorIs(t, err, ErrNotAuthenticated)

	var refreshErr *oauth.RefreshError
	require.True(t, errors.As(err, &refreshErr))
	assert.False(t, refreshErr.Terminal())
}

func TestValidAccessToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	f := newSupervisorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "at-refreshed", "expires_in": 7200}`))
	})
	f.seed(t, time.Now().Add(time.Minute))

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	tokens := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = f.supervisor.ValidAccessToken(context.Background(), "default")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, "at-refreshed", tokens[i], "caller %d", i)
	}

	assert.Equal(t, int32(1), f.refreshes.Load(), "all callers must share a single refresh")
}

func TestForceRefresh_BypassesExpiryCheck(t *testing.T) {
	f := newSupervisorFixture(t, nil)
	f.seed(t, time.Now().Add(time.Hour))

	token, err := f.supervisor.ForceRefresh(context.Background(), "default")
	require.NoError(t, err)

	assert.Equal(t, "at-refreshed", token)
	assert.Equal(t, int32(1), f.refreshes.Load())
}

func TestForceRefresh_LoggedOutAccount(t *testing.T) {
	f := newSupervisorFixture(t, nil)

	_, err := f.supervisor.ForceRefresh(context.Background(), "default")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, int32(0), f.refreshes.Load())
}

func TestRefresh_LogoutDuringRefreshDiscardsResult(t *testing.T) {
	var f *supervisorFixture
	f = newSupervisorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		// The account logs out while the provider call is in flight
		require.NoError(t, f.store.DeleteToken("default"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "at-refreshed", "refresh_token": "rt-rotated", "expires_in": 7200}`))
	})
	f.seed(t, time.Now().Add(time.Minute))

	_, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// The refresh result must not resurrect the deleted record
	rec, err := f.store.GetToken("default")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRefresh_SurvivesCallerCancellation(t *testing.T) {
	f := newSupervisorFixture(t, nil)
	f.seed(t, time.Now().Add(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A refresh runs on a detached context, so a cancelled caller still
	// gets a completed refresh rather than a stranded rotated token.
	token, err := f.supervisor.ValidAccessToken(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", token)
}

func TestOAuth2TokenSource_FreshCredentials(t *testing.T) {
	f := newSupervisorFixture(t, nil)

	expiry := time.Now().Add(time.Hour)
	f.seed(t, expiry)

	ts := f.supervisor.OAuth2TokenSource(context.Background(), "default")

	token, err := ts.Token()
	require.NoError(t, err)

	assert.Equal(t, "at-original", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, "rt-original", token.RefreshToken)
	assert.Equal(t, expiry.UnixMilli(), token.Expiry.UnixMilli())
	assert.True(t, token.Valid())
	assert.Equal(t, int32(0), f.refreshes.Load())
}

func TestOAuth2TokenSource_RefreshesNearExpiry(t *testing.T) {
	f := newSupervisorFixture(t, nil)
	f.seed(t, time.Now().Add(time.Minute))

	ts := f.supervisor.OAuth2TokenSource(context.Background(), "default")

	token, err := ts.Token()
	require.NoError(t, err)

	assert.Equal(t, "at-refreshed", token.AccessToken)
	assert.Equal(t, int32(1), f.refreshes.Load())
}

func TestOAuth2TokenSource_NotAuthenticated(t *testing.T) {
	f := newSupervisorFixture(t, nil)

	ts := f.supervisor.OAuth2TokenSource(context.Background(), "default")

	_, err := ts.Token()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestValidAccessToken_ClockAdvanceTriggersSingleRefresh(t *testing.T) {
	var expiresIn atomic.Int64
	expiresIn.Store(3600)

	f := newSupervisorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": "at-refreshed", "expires_in": %d}`, expiresIn.Load())
	})

	now := time.Now()
	f.supervisor.nowFunc = func() time.Time { return now }
	f.seed(t, now.Add(time.Hour))

	// Fresh token: no refresh
	token, err := f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "at-original", token)
	assert.Equal(t, int32(0), f.refreshes.Load())

	// 55 minutes later the hour-long token sits inside the refresh buffer
	now = now.Add(55 * time.Minute)
	expiresIn.Store(7200)

	token, err = f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "at-refreshed", token)
	assert.Equal(t, int32(1), f.refreshes.Load())

	// The renewed token is fresh again: no second refresh
	_, err = f.supervisor.ValidAccessToken(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.refreshes.Load())
}
