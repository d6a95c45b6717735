package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
)

const (
	FakeTenantID = "tenant-1"
	FakeToken    = "dummy"
	fakeAPIPath  = "/api/v2"
)

// RecordedRequest is one call the fake registry received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type cannedResponse struct {
	status int
	body   string
}

// FakeRegistry serves both the identity token endpoint and the registry API
// from one httptest server. Unconfigured routes answer 404.
type FakeRegistry struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]cannedResponse
	requests []RecordedRequest
}

// NewFakeRegistry starts a fake that hands out FakeToken.
func NewFakeRegistry(t *testing.T) *FakeRegistry {
	t.Helper()

	f := &FakeRegistry{routes: map[string]cannedResponse{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)

	f.OnToken(http.StatusOK, `{"token_type":"Bearer","access_token":"`+FakeToken+`"}`)
	return f
}

// OnToken sets the identity endpoint's answer.
func (f *FakeRegistry) OnToken(status int, body string) {
	f.set(http.MethodPost, "/"+FakeTenantID+"/oauth2/token", status, body)
}

// On sets the answer for a registry API route, e.g. On("GET", "/searches/991", 200, `{}`).
func (f *FakeRegistry) On(method, path string, status int, body string) {
	f.set(method, fakeAPIPath+path, status, body)
}

func (f *FakeRegistry) set(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = cannedResponse{status: status, body: body}
}

func (f *FakeRegistry) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	resp, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not Found"))
		return
	}
	if resp.body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

// Requests returns every API call (token requests excluded) in arrival order.
func (f *FakeRegistry) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RecordedRequest
	for _, r := range f.requests {
		if r.Path == "/"+FakeTenantID+"/oauth2/token" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TokenRequests returns the number of token exchanges performed.
func (f *FakeRegistry) TokenRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.requests {
		if r.Path == "/"+FakeTenantID+"/oauth2/token" {
			n++
		}
	}
	return n
}

// Config points a registry client at the fake.
func (f *FakeRegistry) Config() config.RegistryConfig {
	return config.RegistryConfig{
		TenantID:     FakeTenantID,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		ResourceID:   "resource-1",
		UserAgent:    "registry-sync-test",
		IdentityURL:  f.Server.URL,
		APIURL:       f.Server.URL + fakeAPIPath,
		Timeout:      5 * time.Second,
		PageSize:     100,
	}
}
