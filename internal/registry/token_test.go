package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
)

type recordedCall struct {
	operation  string
	statusCode int
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) RecordRegistryCall(_ context.Context, operation string, statusCode int, _ float64) {
	f.calls = append(f.calls, recordedCall{operation: operation, statusCode: statusCode})
}

func testRegistryConfig(identityURL, apiURL string) config.RegistryConfig {
	return config.RegistryConfig{
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		ResourceID:   "resource-1",
		UserAgent:    "registry-sync-test",
		IdentityURL:  identityURL,
		APIURL:       apiURL,
		Timeout:      5 * time.Second,
		PageSize:     100,
	}
}

func TestAcquireToken_Success(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tenant-1/oauth2/token", r.URL.Path)
		assert.Equal(t, "registry-sync-test", r.Header.Get("User-Agent"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
			"resource":      r.PostForm.Get("resource"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "T", "token_type": "Bearer"})
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	p := NewTokenProvider(testRegistryConfig(srv.URL, ""), zap.NewNop()).WithMetrics(rec)

	token, err := p.AcquireToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T", token)
	assert.Equal(t, map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     "client-1",
		"client_secret": "secret-1",
		"resource":      "resource-1",
	}, form)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedCall{operation: "acquire_token", statusCode: http.StatusOK}, rec.calls[0])
}

func TestAcquireToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	p := NewTokenProvider(testRegistryConfig(srv.URL, ""), zap.NewNop())

	token, err := p.AcquireToken(context.Background())
	require.Error(t, err)
	assert.Empty(t, token)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, `{"error":"invalid_client"}`, authErr.Body)
	assert.True(t, IsAuthError(err))
	assert.False(t, IsRegistryError(err))
}

func TestAcquireToken_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	p := NewTokenProvider(testRegistryConfig(srv.URL, ""), zap.NewNop())

	token, err := p.AcquireToken(context.Background())
	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.True(t, IsAuthError(err))
}

func TestAcquireToken_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewTokenProvider(testRegistryConfig(url, ""), zap.NewNop())

	token, err := p.AcquireToken(context.Background())
	assert.Empty(t, token)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Zero(t, authErr.StatusCode)
	assert.NotNil(t, authErr.Err)
}

func TestAcquireToken_FreshExchangeEachCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"T"}`))
	}))
	defer srv.Close()

	p := NewTokenProvider(testRegistryConfig(srv.URL, ""), zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := p.AcquireToken(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}
