package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	EventPatientCreated              = "registry.patient.created"
	EventPatientUpdated              = "registry.patient.updated"
	EventSearchCreated               = "registry.search.created"
	EventPatientRegistryIDBackfilled = "registry.patient_id.backfilled"
)

const ServiceName = "registry-sync"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientSyncedEvent is published after a registry patient was created or updated.
type PatientSyncedEvent struct {
	BaseEvent
	Data PatientSyncedData `json:"data"`
}

type PatientSyncedData struct {
	DonorID           string    `json:"donor_id"`
	PatientRegistryID string    `json:"patient_registry_id,omitempty"`
	SyncedAt          time.Time `json:"synced_at"`
}

// SearchCreatedEvent is published once a new searchId has been stored.
type SearchCreatedEvent struct {
	BaseEvent
	Data SearchCreatedData `json:"data"`
}

type SearchCreatedData struct {
	DonorID           string    `json:"donor_id"`
	PatientRegistryID string    `json:"patient_registry_id"`
	SearchID          string    `json:"search_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// PatientRegistryIDBackfilledEvent is published by the reconciler for every
// wmdaId it writes into the donor store.
type PatientRegistryIDBackfilledEvent struct {
	BaseEvent
	Data PatientRegistryIDBackfilledData `json:"data"`
}

type PatientRegistryIDBackfilledData struct {
	DonorID           string    `json:"donor_id"`
	PatientRegistryID string    `json:"patient_registry_id"`
	BackfilledAt      time.Time `json:"backfilled_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}
