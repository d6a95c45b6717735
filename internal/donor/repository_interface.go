package donor

import "context"

// RepositoryInterface defines the contract for donor store access
type RepositoryInterface interface {
	FetchDonor(ctx context.Context, donorID string) (*Record, error)
	FetchPatientRegistryID(ctx context.Context, donorID string) (string, error)
	FetchSearchID(ctx context.Context, donorID string) (string, error)
	PersistSearchID(ctx context.Context, donorID, searchID string) error
	PersistPatientRegistryID(ctx context.Context, donorID, patientRegistryID string) (bool, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
