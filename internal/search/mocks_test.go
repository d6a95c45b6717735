package search

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// mockDonorStore implements donor.RepositoryInterface for testing
type mockDonorStore struct {
	wmdaID   string
	searchID string
	wmdaErr  error
	fetchErr error

	persistSearchIDFunc func(ctx context.Context, donorID, searchID string) error
	persisted           []string
}

func (m *mockDonorStore) FetchDonor(ctx context.Context, donorID string) (*donor.Record, error) {
	return nil, errors.New("not implemented")
}

func (m *mockDonorStore) FetchPatientRegistryID(ctx context.Context, donorID string) (string, error) {
	if m.wmdaErr != nil {
		return "", m.wmdaErr
	}
	return m.wmdaID, nil
}

func (m *mockDonorStore) FetchSearchID(ctx context.Context, donorID string) (string, error) {
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	return m.searchID, nil
}

func (m *mockDonorStore) PersistSearchID(ctx context.Context, donorID, searchID string) error {
	m.persisted = append(m.persisted, searchID)
	if m.persistSearchIDFunc != nil {
		return m.persistSearchIDFunc(ctx, donorID, searchID)
	}
	return nil
}

func (m *mockDonorStore) PersistPatientRegistryID(ctx context.Context, donorID, id string) (bool, error) {
	return false, errors.New("not implemented")
}

// mockTokens implements registry.TokenSource for testing
type mockTokens struct {
	token string
	err   error
	calls int
}

func (m *mockTokens) AcquireToken(ctx context.Context) (string, error) {
	m.calls++
	return m.token, m.err
}

// mockAPI implements registry.API for testing
type mockAPI struct {
	createSearchFunc        func(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error)
	listPatientSearchesFunc func(ctx context.Context, token, wmdaID string) (json.RawMessage, error)
	getSearchFunc           func(ctx context.Context, token, searchID string) (json.RawMessage, error)
	calls                   int
}

func (m *mockAPI) CreatePatient(ctx context.Context, token string, payload registry.PatientPayload) error {
	m.calls++
	return errors.New("not implemented")
}

func (m *mockAPI) UpdatePatient(ctx context.Context, token string, payload registry.PatientPayload) error {
	m.calls++
	return errors.New("not implemented")
}

func (m *mockAPI) ListPatients(ctx context.Context, token string, params registry.PageParams) (*registry.PatientList, error) {
	m.calls++
	return nil, errors.New("not implemented")
}

func (m *mockAPI) CreateSearch(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
	m.calls++
	if m.createSearchFunc != nil {
		return m.createSearchFunc(ctx, token, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAPI) ListPatientSearches(ctx context.Context, token string, wmdaID string) (json.RawMessage, error) {
	m.calls++
	if m.listPatientSearchesFunc != nil {
		return m.listPatientSearchesFunc(ctx, token, wmdaID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAPI) GetSearch(ctx context.Context, token string, searchID string) (json.RawMessage, error) {
	m.calls++
	if m.getSearchFunc != nil {
		return m.getSearchFunc(ctx, token, searchID)
	}
	return nil, errors.New("not implemented")
}

type mockMetrics struct {
	ops []string
	ok  []bool
}

func (m *mockMetrics) RecordSyncOperation(ctx context.Context, operation string, success bool) {
	m.ops = append(m.ops, operation)
	m.ok = append(m.ok, success)
}

// mockService implements ServiceInterface for testing
type mockService struct {
	createSearchFunc     func(ctx context.Context, donorID string) (string, error)
	listSearchesFunc     func(ctx context.Context, donorID string) (json.RawMessage, error)
	getSearchSummaryFunc func(ctx context.Context, donorID string) (json.RawMessage, error)
}

func (m *mockService) CreateSearch(ctx context.Context, donorID string) (string, error) {
	if m.createSearchFunc != nil {
		return m.createSearchFunc(ctx, donorID)
	}
	return "", errors.New("not implemented")
}

func (m *mockService) ListSearches(ctx context.Context, donorID string) (json.RawMessage, error) {
	if m.listSearchesFunc != nil {
		return m.listSearchesFunc(ctx, donorID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetSearchSummary(ctx context.Context, donorID string) (json.RawMessage, error) {
	if m.getSearchSummaryFunc != nil {
		return m.getSearchSummaryFunc(ctx, donorID)
	}
	return nil, errors.New("not implemented")
}
