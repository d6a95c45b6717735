package search

import (
	"context"
	"encoding/json"
)

// ServiceInterface defines the contract for registry search operations
type ServiceInterface interface {
	CreateSearch(ctx context.Context, donorID string) (string, error)
	ListSearches(ctx context.Context, donorID string) (json.RawMessage, error)
	GetSearchSummary(ctx context.Context, donorID string) (json.RawMessage, error)
}

// MetricsRecorder records workflow outcomes.
type MetricsRecorder interface {
	RecordSyncOperation(ctx context.Context, operation string, success bool)
}

var _ ServiceInterface = (*Service)(nil)
