package patient

import (
	"github.com/WailSalutem-Health-Care/registry-sync/internal/pagination"
)

// Action is what SyncPatient did against the registry.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Placeholder values for the registry patient fields the donor store does
// not carry. They are fixed policy values, identical for every donor.
const (
	PlaceholderCMVStatus          = "P"
	PlaceholderDiagnosisCode      = "ALL"
	PlaceholderDiagnosisText      = "acute myeloid leukaemia"
	PlaceholderDiagnosisDate      = "2025-01-28"
	PlaceholderDiseasePhase       = "PF"
	PlaceholderPoolCountryCode    = "NL"
	PlaceholderTransplantCentreID = "TC X"
	PlaceholderABO                = "A"
	PlaceholderRhesus             = "P"
	PlaceholderWeight             = 76
	PlaceholderLegalTerms         = true
)

// SyncResponse is returned by the sync, create and update endpoints.
type SyncResponse struct {
	Success bool   `json:"success"`
	DonorID string `json:"donor_id"`
	Action  Action `json:"action"`
	Message string `json:"message"`
}

// RegistryPatientResponse is one row of the registry patient listing.
type RegistryPatientResponse struct {
	PatientID        string `json:"patient_id"`
	WmdaID           string `json:"wmda_id"`
	Status           string `json:"status"`
	DateOfBirth      string `json:"date_of_birth"`
	Ethnicity        string `json:"ethnicity"`
	AssignedUserName string `json:"assigned_user_name"`
	LastUpdated      string `json:"last_updated"`
	RequestSummary   string `json:"request_summary"`
}

// RegistryPatientListResponse is one page of the registry patient listing.
type RegistryPatientListResponse struct {
	Success    bool                      `json:"success"`
	Patients   []RegistryPatientResponse `json:"patients"`
	Pagination pagination.Meta           `json:"pagination"`
}
