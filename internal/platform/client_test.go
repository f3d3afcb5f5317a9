package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenSource hands out numbered tokens and counts forced refreshes.
type fakeTokenSource struct {
	validCalls   atomic.Int32
	refreshCalls atomic.Int32
	refreshErr   error
}

func (f *fakeTokenSource) ValidAccessToken(ctx context.Context, accountID string) (string, error) {
	f.validCalls.Add(1)
	return "token-1", nil
}

func (f *fakeTokenSource) ForceRefresh(ctx context.Context, accountID string) (string, error) {
	f.refreshCalls.Add(1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return fmt.Sprintf("token-%d", f.refreshCalls.Load()+1), nil
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [{"id": "f1", "name": "Marketing"}], "continuation": ""}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	list, err := client.ListFolders(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "application/json", gotAccept)

	require.Len(t, list.Items, 1)
	assert.Equal(t, "f1", list.Items[0].ID)
	assert.Equal(t, "Marketing", list.Items[0].Name)
}

func TestClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	var requests atomic.Int32
	var tokensSeen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		tokensSeen = append(tokensSeen, r.Header.Get("Authorization"))

		if requests.Load() == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"design": {"id": "d1", "title": "Launch deck"}}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	design, err := client.GetDesign(context.Background(), "d1")
	require.NoError(t, err)

	assert.Equal(t, "d1", design.ID)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())

	// The retry carried the renewed token
	require.Len(t, tokensSeen, 2)
	assert.Equal(t, "Bearer token-1", tokensSeen[0])
	assert.Equal(t, "Bearer token-2", tokensSeen[1])
}

func TestClient_NoSecondRetryAfterPersistentUnauthorized(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	_, err := client.GetDesign(context.Background(), "d1")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)

	// Exactly one refresh and exactly two round-trips: no loop
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
	assert.Equal(t, int32(2), requests.Load())
}

func TestClient_ForceRefreshFailureStopsRetry(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refreshErr := errors.New("re-authorization required")
	tokens := &fakeTokenSource{refreshErr: refreshErr}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	_, err := client.GetDesign(context.Background(), "d1")
	assert.ErrorIs(t, err, refreshErr)
	assert.Equal(t, int32(1), requests.Load())
}

func TestClient_NonAuthErrorDoesNotRefresh(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	_, err := client.GetFolder(context.Background(), "missing")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusNotFound, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Path, "/v1/folders/missing")

	assert.Equal(t, int32(0), tokens.refreshCalls.Load())
	assert.Equal(t, int32(1), requests.Load())
}

func TestClient_RetryReplaysRequestBody(t *testing.T) {
	var requests atomic.Int32
	var bodies []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		if requests.Load() == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job": {"id": "j1", "status": "in_progress"}}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	job, err := client.CreateExport(context.Background(), "d1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, "in_progress", job.Status)

	// Both attempts carried the identical payload
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, "d1", bodies[1]["design_id"])
}

func TestClient_PaginationPassesContinuation(t *testing.T) {
	var gotContinuation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContinuation = r.URL.Query().Get("continuation")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [], "continuation": ""}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{}
	client := NewClient(server.URL, "default", tokens, WithHTTPClient(server.Client()))

	_, err := client.ListDesigns(context.Background(), "page-2")
	require.NoError(t, err)
	assert.Equal(t, "page-2", gotContinuation)
}

func TestClient_TokenSourceErrorShortCircuits(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL, "default", failingTokenSource{}, WithHTTPClient(server.Client()))

	_, err := client.ListFolders(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, int32(0), requests.Load())
}

type failingTokenSource struct{}

func (failingTokenSource) ValidAccessToken(ctx context.Context, accountID string) (string, error) {
	return "", errors.New("not authenticated")
}

func (failingTokenSource) ForceRefresh(ctx context.Context, accountID string) (string, error) {
	return "", errors.New("not authenticated")
}
