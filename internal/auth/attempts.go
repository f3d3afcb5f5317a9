package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"designbridge/pkg/logging"
	"designbridge/pkg/oauth"
)

// ErrStateMismatch indicates a callback presented a state value that does
// not match any pending authorization attempt. This means forgery or a
// stale/duplicate callback; the attempt must be aborted before any token
// exchange happens.
var ErrStateMismatch = errors.New("state mismatch: no pending authorization attempt for callback")

// attemptExpiry bounds how long an authorization attempt may sit waiting
// for the user to finish in the browser.
const attemptExpiry = 10 * time.Minute

// Attempt is one authorization round-trip, created at authorization start
// and consumed exactly once at callback.
type Attempt struct {
	// ID identifies the attempt for logging.
	ID string

	// AccountID is the account the credentials will be stored under.
	AccountID string

	// CodeVerifier is the PKCE secret, kept server-side until callback.
	CodeVerifier string

	// CodeChallenge is the S256 hash sent to the authorization endpoint.
	CodeChallenge string

	// State is the anti-forgery token bound to this attempt.
	State string

	// CreatedAt is when the attempt was initiated.
	CreatedAt time.Time
}

// AttemptStore provides thread-safe, single-use storage for pending
// authorization attempts, keyed by their state parameter.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]*Attempt

	expiry      time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewAttemptStore creates an attempt store and starts its background
// cleanup of abandoned attempts.
func NewAttemptStore() *AttemptStore {
	as := &AttemptStore{
		attempts:    make(map[string]*Attempt),
		expiry:      attemptExpiry,
		stopCleanup: make(chan struct{}),
	}

	go as.cleanupLoop()

	return as
}

// Begin creates a new attempt for an account: fresh PKCE pair, fresh state.
func (as *AttemptStore) Begin(accountID string) (*Attempt, error) {
	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return nil, err
	}

	state, err := oauth.GenerateState()
	if err != nil {
		return nil, err
	}

	attempt := &Attempt{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		CodeVerifier:  pkce.CodeVerifier,
		CodeChallenge: pkce.CodeChallenge,
		State:         state,
		CreatedAt:     time.Now(),
	}

	as.mu.Lock()
	as.attempts[state] = attempt
	as.mu.Unlock()

	logging.Debug("Auth", "Began authorization attempt id=%s account=%s", attempt.ID, accountID)
	return attempt, nil
}

// Consume validates a callback state and returns the matching attempt.
// The attempt is removed whether or not it is valid, so a state can never
// be replayed.
func (as *AttemptStore) Consume(state string) (*Attempt, error) {
	as.mu.Lock()
	attempt, ok := as.attempts[state]
	if ok {
		delete(as.attempts, state)
	}
	as.mu.Unlock()

	if !ok {
		logging.Warn("Auth", "Callback presented unknown state (len=%d)", len(state))
		return nil, ErrStateMismatch
	}

	if time.Since(attempt.CreatedAt) > as.expiry {
		logging.Warn("Auth", "Callback for expired attempt id=%s age=%v", attempt.ID, time.Since(attempt.CreatedAt))
		return nil, ErrStateMismatch
	}

	return attempt, nil
}

// Stop stops the background cleanup goroutine.
func (as *AttemptStore) Stop() {
	as.stopOnce.Do(func() {
		close(as.stopCleanup)
	})
}

// cleanupLoop periodically discards abandoned attempts.
func (as *AttemptStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			as.cleanup()
		case <-as.stopCleanup:
			return
		}
	}
}

func (as *AttemptStore) cleanup() {
	as.mu.Lock()
	defer as.mu.Unlock()

	count := 0
	for state, attempt := range as.attempts {
		if time.Since(attempt.CreatedAt) > as.expiry {
			delete(as.attempts, state)
			count++
		}
	}

	if count > 0 {
		logging.Debug("Auth", "Cleaned up %d abandoned authorization attempts", count)
	}
}
