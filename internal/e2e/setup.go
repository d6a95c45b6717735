//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/auth"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	httpserver "github.com/WailSalutem-Health-Care/registry-sync/internal/http"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/patient"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/reconcile"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/search"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/testutil"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	Registry      *testutil.FakeRegistry
	MockPublisher *testutil.MockPublisher
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest creates a complete test environment for E2E testing
// This includes:
// - Real PostgreSQL donor store
// - Fake identity endpoint and registry API
// - Real HTTP server with all routes
// - In-memory RabbitMQ publisher
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	fake := testutil.NewFakeRegistry(t)
	mockPublisher := testutil.NewMockPublisher()
	logger := zap.NewNop()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}
	verifier, privateKey := testutil.CreateTestVerifier(t)

	cfg := fake.Config()
	donors := donor.NewRepository(db, logger)
	tokens := registry.NewTokenProvider(cfg, logger)
	api := registry.NewClient(cfg, logger)

	router := httpserver.SetupRouter(httpserver.Services{
		Patient:   patient.NewService(donors, tokens, api, logger).WithPublisher(mockPublisher),
		Search:    search.NewService(donors, tokens, api, logger).WithPublisher(mockPublisher),
		Reconcile: reconcile.NewService(donors, tokens, api, cfg.PageSize, logger).WithPublisher(mockPublisher),
	}, httpserver.Options{
		Verifier:     verifier,
		Permissions:  perms,
		DefaultLimit: cfg.PageSize,
		Logger:       logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:        server,
		DB:            db,
		Registry:      fake,
		MockPublisher: mockPublisher,
		PrivateKey:    privateKey,
	}
}

// AdminClient returns a client authenticated as REGISTRY_ADMIN.
func (ts *TestServer) AdminClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateAdminToken(t, ts.PrivateKey))
}

// ViewerClient returns a client authenticated as REGISTRY_VIEWER.
func (ts *TestServer) ViewerClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateViewerToken(t, ts.PrivateKey))
}

// StoredIDs reads wmda_id and search_id of a donor straight from the table.
func (ts *TestServer) StoredIDs(t *testing.T, donorID string) (wmdaID, searchID sql.NullString) {
	t.Helper()
	err := ts.DB.QueryRow(`SELECT wmda_id, search_id FROM person_data WHERE donn_numero = $1`, donorID).
		Scan(&wmdaID, &searchID)
	if err != nil {
		t.Fatalf("Failed to read donor %s: %v", donorID, err)
	}
	return wmdaID, searchID
}
