package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/pagination"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// ServiceInterface defines the contract for registry patient operations
type ServiceInterface interface {
	CreatePatient(ctx context.Context, donorID string) error
	UpdatePatient(ctx context.Context, donorID string) error
	SyncPatient(ctx context.Context, donorID string) (Action, error)
	ListRegistryPatients(ctx context.Context, params pagination.Params) (*registry.PatientList, error)
}

// MetricsRecorder records workflow outcomes.
type MetricsRecorder interface {
	RecordSyncOperation(ctx context.Context, operation string, success bool)
}

var _ ServiceInterface = (*Service)(nil)
