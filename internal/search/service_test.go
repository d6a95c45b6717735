package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/messaging"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/testutil"
)

func TestNewRequest(t *testing.T) {
	body, err := json.Marshal(NewRequest("215508"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"wmdaId": "215508",
		"matchEngine": 2,
		"searchType": "DR",
		"overallMismatches": 0,
		"isCbuAbLowDrb1HighResolution": false,
		"searchOnlyOwnIon": false
	}`, string(body))
}

func TestService_CreateSearch(t *testing.T) {
	store := &mockDonorStore{wmdaID: "215508"}
	var gotReq registry.SearchRequest
	api := &mockAPI{
		createSearchFunc: func(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
			assert.Equal(t, "dummy", token)
			gotReq = req
			return &registry.SearchCreated{SearchID: "991"}, nil
		},
	}
	pub := testutil.NewMockPublisher()
	metrics := &mockMetrics{}

	svc := NewService(store, &mockTokens{token: "dummy"}, api, zap.NewNop()).
		WithPublisher(pub).
		WithMetrics(metrics)

	searchID, err := svc.CreateSearch(context.Background(), "12345")

	require.NoError(t, err)
	assert.Equal(t, "991", searchID)
	assert.Equal(t, "215508", gotReq.WmdaID)
	assert.Equal(t, []string{"991"}, store.persisted)
	assert.Equal(t, []bool{true}, metrics.ok)

	events := pub.GetEventsByKey(messaging.EventSearchCreated)
	require.Len(t, events, 1)
	var evt messaging.SearchCreatedEvent
	require.NoError(t, json.Unmarshal(events[0].RawJSON, &evt))
	assert.Equal(t, "991", evt.Data.SearchID)
	assert.Equal(t, "215508", evt.Data.PatientRegistryID)
}

func TestService_CreateSearch_OverwritesPreviousSearch(t *testing.T) {
	store := &mockDonorStore{wmdaID: "215508", searchID: "990"}
	next := []registry.ID{"991", "992"}
	api := &mockAPI{
		createSearchFunc: func(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
			id := next[0]
			next = next[1:]
			return &registry.SearchCreated{SearchID: id}, nil
		},
	}

	svc := NewService(store, &mockTokens{token: "dummy"}, api, zap.NewNop())

	_, err := svc.CreateSearch(context.Background(), "12345")
	require.NoError(t, err)
	_, err = svc.CreateSearch(context.Background(), "12345")
	require.NoError(t, err)

	assert.Equal(t, []string{"991", "992"}, store.persisted)
}

func TestService_CreateSearch_NoRegistryID(t *testing.T) {
	store := &mockDonorStore{wmdaErr: donor.ErrPatientRegistryIDNotFound}
	tokens := &mockTokens{token: "dummy"}
	api := &mockAPI{}

	svc := NewService(store, tokens, api, zap.NewNop())

	_, err := svc.CreateSearch(context.Background(), "12345")

	assert.ErrorIs(t, err, donor.ErrPatientRegistryIDNotFound)
	assert.Equal(t, 0, tokens.calls)
	assert.Equal(t, 0, api.calls)
	assert.Empty(t, store.persisted)
}

func TestService_CreateSearch_MissingSearchID(t *testing.T) {
	store := &mockDonorStore{wmdaID: "215508"}
	api := &mockAPI{
		createSearchFunc: func(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
			return &registry.SearchCreated{}, nil
		},
	}
	pub := testutil.NewMockPublisher()
	core, logs := observer.New(zapcore.WarnLevel)

	svc := NewService(store, &mockTokens{token: "dummy"}, api, zap.New(core)).WithPublisher(pub)

	searchID, err := svc.CreateSearch(context.Background(), "12345")

	assert.ErrorIs(t, err, ErrMissingSearchID)
	assert.Empty(t, searchID)
	assert.Empty(t, store.persisted)
	assert.Equal(t, 0, pub.GetEventCount())
	assert.Equal(t, 1, logs.FilterMessage("search created but no searchId returned").Len())
}

func TestService_CreateSearch_RegistryRejects(t *testing.T) {
	store := &mockDonorStore{wmdaID: "215508"}
	api := &mockAPI{
		createSearchFunc: func(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
			return nil, &registry.RegistryError{Operation: "creating patient search", StatusCode: 400, Body: "bad"}
		},
	}

	svc := NewService(store, &mockTokens{token: "dummy"}, api, zap.NewNop())

	_, err := svc.CreateSearch(context.Background(), "12345")

	assert.True(t, registry.IsRegistryError(err))
	assert.Empty(t, store.persisted)
}

func TestService_CreateSearch_PersistFailure(t *testing.T) {
	storeErr := &donor.StoreError{Op: "persist search id", Err: errors.New("connection reset")}
	store := &mockDonorStore{
		wmdaID: "215508",
		persistSearchIDFunc: func(ctx context.Context, donorID, searchID string) error {
			return storeErr
		},
	}
	api := &mockAPI{
		createSearchFunc: func(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
			return &registry.SearchCreated{SearchID: "991"}, nil
		},
	}
	pub := testutil.NewMockPublisher()

	svc := NewService(store, &mockTokens{token: "dummy"}, api, zap.NewNop()).WithPublisher(pub)

	_, err := svc.CreateSearch(context.Background(), "12345")

	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, 0, pub.GetEventCount())
}

func TestService_ListSearches(t *testing.T) {
	api := &mockAPI{
		listPatientSearchesFunc: func(ctx context.Context, token, wmdaID string) (json.RawMessage, error) {
			assert.Equal(t, "215508", wmdaID)
			return json.RawMessage(`[{"searchId":991}]`), nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(&mockDonorStore{wmdaID: "215508"}, &mockTokens{token: "dummy"}, api, zap.NewNop()).
		WithMetrics(metrics)

	result, err := svc.ListSearches(context.Background(), "12345")

	require.NoError(t, err)
	assert.JSONEq(t, `[{"searchId":991}]`, string(result))
	assert.Equal(t, []string{"list_searches"}, metrics.ops)
}

func TestService_ListSearches_TokenFailure(t *testing.T) {
	api := &mockAPI{}
	tokens := &mockTokens{err: &registry.AuthError{StatusCode: 400, Body: "AADSTS7000215"}}

	svc := NewService(&mockDonorStore{wmdaID: "215508"}, tokens, api, zap.NewNop())

	_, err := svc.ListSearches(context.Background(), "12345")

	require.Error(t, err)
	assert.True(t, registry.IsAuthError(err))
	assert.Contains(t, err.Error(), "unable to get bearer token")
	assert.Equal(t, 0, api.calls)
}

func TestService_GetSearchSummary(t *testing.T) {
	api := &mockAPI{
		getSearchFunc: func(ctx context.Context, token, searchID string) (json.RawMessage, error) {
			assert.Equal(t, "991", searchID)
			return json.RawMessage(`{"searchId":991,"status":"COMPLETED"}`), nil
		},
	}

	svc := NewService(&mockDonorStore{searchID: "991"}, &mockTokens{token: "dummy"}, api, zap.NewNop())

	result, err := svc.GetSearchSummary(context.Background(), "12345")

	require.NoError(t, err)
	assert.Contains(t, string(result), "COMPLETED")
}

func TestService_GetSearchSummary_NoSearch(t *testing.T) {
	api := &mockAPI{}
	tokens := &mockTokens{token: "dummy"}

	svc := NewService(&mockDonorStore{fetchErr: donor.ErrSearchIDNotFound}, tokens, api, zap.NewNop())

	_, err := svc.GetSearchSummary(context.Background(), "12345")

	assert.ErrorIs(t, err, donor.ErrSearchIDNotFound)
	assert.Equal(t, 0, tokens.calls)
	assert.Equal(t, 0, api.calls)
}

// An unmatched donor goes through the real store adapter: the lookup logs
// a not-found diagnostic and no registry request is made.
func TestService_UnmatchedDonorNeverReachesRegistry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	fake := testutil.NewFakeRegistry(t)
	cfg := fake.Config()
	svc := NewService(
		donor.NewRepository(db, logger),
		registry.NewTokenProvider(cfg, logger),
		registry.NewClient(cfg, logger),
		logger,
	)

	lookup := regexp.QuoteMeta(`SELECT wmda_id FROM person_data WHERE donn_numero = $1`)
	mock.ExpectQuery(lookup).WithArgs("00000").WillReturnRows(sqlmock.NewRows([]string{"wmda_id"}))
	mock.ExpectQuery(lookup).WithArgs("00000").WillReturnRows(sqlmock.NewRows([]string{"wmda_id"}))

	_, err = svc.CreateSearch(context.Background(), "00000")
	assert.True(t, donor.IsNotFound(err))

	_, err = svc.ListSearches(context.Background(), "00000")
	assert.True(t, donor.IsNotFound(err))

	assert.Equal(t, 2, logs.FilterMessage("patient registry id not found").Len())
	assert.Empty(t, fake.Requests())
	assert.Equal(t, 0, fake.TokenRequests())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListSearches_AgainstFakeRegistry(t *testing.T) {
	fake := testutil.NewFakeRegistry(t)
	fake.On(http.MethodGet, "/searches/patientSearches/215508", http.StatusInternalServerError, "Internal Server Error")

	cfg := fake.Config()
	svc := NewService(
		&mockDonorStore{wmdaID: "215508"},
		registry.NewTokenProvider(cfg, zap.NewNop()),
		registry.NewClient(cfg, zap.NewNop()),
		zap.NewNop(),
	)

	_, err := svc.ListSearches(context.Background(), "12345")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "Internal Server Error")

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v2/searches/patientSearches/215508", reqs[0].Path)
	assert.Equal(t, "Bearer dummy", reqs[0].Header.Get("Authorization"))
}

func TestService_CreateSearch_AgainstFakeRegistry(t *testing.T) {
	fake := testutil.NewFakeRegistry(t)
	fake.On(http.MethodPost, "/searches", http.StatusCreated, `{"searchId":991}`)

	store := &mockDonorStore{wmdaID: "215508"}
	cfg := fake.Config()
	svc := NewService(
		store,
		registry.NewTokenProvider(cfg, zap.NewNop()),
		registry.NewClient(cfg, zap.NewNop()),
		zap.NewNop(),
	)

	searchID, err := svc.CreateSearch(context.Background(), "12345")

	require.NoError(t, err)
	assert.Equal(t, "991", searchID)
	assert.Equal(t, []string{"991"}, store.persisted)
}
