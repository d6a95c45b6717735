package patient

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/pagination"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// mockDonorStore implements donor.RepositoryInterface for testing
type mockDonorStore struct {
	fetchDonorFunc               func(ctx context.Context, donorID string) (*donor.Record, error)
	fetchPatientRegistryIDFunc   func(ctx context.Context, donorID string) (string, error)
	fetchSearchIDFunc            func(ctx context.Context, donorID string) (string, error)
	persistSearchIDFunc          func(ctx context.Context, donorID, searchID string) error
	persistPatientRegistryIDFunc func(ctx context.Context, donorID, id string) (bool, error)
}

func (m *mockDonorStore) FetchDonor(ctx context.Context, donorID string) (*donor.Record, error) {
	if m.fetchDonorFunc != nil {
		return m.fetchDonorFunc(ctx, donorID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDonorStore) FetchPatientRegistryID(ctx context.Context, donorID string) (string, error) {
	if m.fetchPatientRegistryIDFunc != nil {
		return m.fetchPatientRegistryIDFunc(ctx, donorID)
	}
	return "", errors.New("not implemented")
}

func (m *mockDonorStore) FetchSearchID(ctx context.Context, donorID string) (string, error) {
	if m.fetchSearchIDFunc != nil {
		return m.fetchSearchIDFunc(ctx, donorID)
	}
	return "", errors.New("not implemented")
}

func (m *mockDonorStore) PersistSearchID(ctx context.Context, donorID, searchID string) error {
	if m.persistSearchIDFunc != nil {
		return m.persistSearchIDFunc(ctx, donorID, searchID)
	}
	return errors.New("not implemented")
}

func (m *mockDonorStore) PersistPatientRegistryID(ctx context.Context, donorID, id string) (bool, error) {
	if m.persistPatientRegistryIDFunc != nil {
		return m.persistPatientRegistryIDFunc(ctx, donorID, id)
	}
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
	createPatientFunc func(ctx context.Context, token string, payload registry.PatientPayload) error
	updatePatientFunc func(ctx context.Context, token string, payload registry.PatientPayload) error
	listPatientsFunc  func(ctx context.Context, token string, params registry.PageParams) (*registry.PatientList, error)
	calls             int
}

func (m *mockAPI) CreatePatient(ctx context.Context, token string, payload registry.PatientPayload) error {
	m.calls++
	if m.createPatientFunc != nil {
		return m.createPatientFunc(ctx, token, payload)
	}
	return errors.New("not implemented")
}

func (m *mockAPI) UpdatePatient(ctx context.Context, token string, payload registry.PatientPayload) error {
	m.calls++
	if m.updatePatientFunc != nil {
		return m.updatePatientFunc(ctx, token, payload)
	}
	return errors.New("not implemented")
}

func (m *mockAPI) ListPatients(ctx context.Context, token string, params registry.PageParams) (*registry.PatientList, error) {
	m.calls++
	if m.listPatientsFunc != nil {
		return m.listPatientsFunc(ctx, token, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAPI) CreateSearch(ctx context.Context, token string, req registry.SearchRequest) (*registry.SearchCreated, error) {
	m.calls++
	return nil, errors.New("not implemented")
}

func (m *mockAPI) ListPatientSearches(ctx context.Context, token string, wmdaID string) (json.RawMessage, error) {
	m.calls++
	return nil, errors.New("not implemented")
}

func (m *mockAPI) GetSearch(ctx context.Context, token string, searchID string) (json.RawMessage, error) {
	m.calls++
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
	createPatientFunc        func(ctx context.Context, donorID string) error
	updatePatientFunc        func(ctx context.Context, donorID string) error
	syncPatientFunc          func(ctx context.Context, donorID string) (Action, error)
	listRegistryPatientsFunc func(ctx context.Context, params pagination.Params) (*registry.PatientList, error)
}

func (m *mockService) CreatePatient(ctx context.Context, donorID string) error {
	if m.createPatientFunc != nil {
		return m.createPatientFunc(ctx, donorID)
	}
	return errors.New("not implemented")
}

func (m *mockService) UpdatePatient(ctx context.Context, donorID string) error {
	if m.updatePatientFunc != nil {
		return m.updatePatientFunc(ctx, donorID)
	}
	return errors.New("not implemented")
}

func (m *mockService) SyncPatient(ctx context.Context, donorID string) (Action, error) {
	if m.syncPatientFunc != nil {
		return m.syncPatientFunc(ctx, donorID)
	}
	return "", errors.New("not implemented")
}

func (m *mockService) ListRegistryPatients(ctx context.Context, params pagination.Params) (*registry.PatientList, error) {
	if m.listRegistryPatientsFunc != nil {
		return m.listRegistryPatientsFunc(ctx, params)
	}
	return nil, errors.New("not implemented")
}

func sampleRecord(donorID, wmdaID string) *donor.Record {
	return &donor.Record{
		DonorID:     donorID,
		DateOfBirth: "1980-01-01",
		Ethnicity:   "UNK",
		Sex:         "F",
		HLA: donor.HLA{
			A:    donor.HLATyping{Field1: "01:01", Field2: "02:01"},
			B:    donor.HLATyping{Field1: "08:01", Field2: "07:02"},
			C:    donor.HLATyping{Field1: "07:01", Field2: "07:02"},
			DRB1: donor.HLATyping{Field1: "15:01", Field2: "03:01"},
			DQB1: donor.HLATyping{Field1: "06:02", Field2: "02:01"},
		},
		PatientRegistryID: wmdaID,
	}
}
