package patient

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/apierror"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/pagination"
)

type Handler struct {
	service      ServiceInterface
	defaultLimit int
}

// NewHandler creates the patient handler. defaultLimit is the registry page
// size used when a listing request carries no limit.
func NewHandler(service ServiceInterface, defaultLimit int) *Handler {
	return &Handler{service: service, defaultLimit: defaultLimit}
}

// SyncPatient handles POST /donors/{donorId}/patient/sync
func (h *Handler) SyncPatient(w http.ResponseWriter, r *http.Request) {
	donorID := mux.Vars(r)["donorId"]

	action, err := h.service.SyncPatient(r.Context(), donorID)
	if err != nil {
		apierror.FromError(w, err)
		return
	}

	apierror.JSON(w, http.StatusOK, SyncResponse{
		Success: true,
		DonorID: donorID,
		Action:  action,
		Message: "Patient " + string(action) + " successfully",
	})
}

// CreatePatient handles POST /donors/{donorId}/patient
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	donorID := mux.Vars(r)["donorId"]

	if err := h.service.CreatePatient(r.Context(), donorID); err != nil {
		apierror.FromError(w, err)
		return
	}

	apierror.JSON(w, http.StatusCreated, SyncResponse{
		Success: true,
		DonorID: donorID,
		Action:  ActionCreated,
		Message: "Patient created successfully",
	})
}

// UpdatePatient handles PUT /donors/{donorId}/patient
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	donorID := mux.Vars(r)["donorId"]

	if err := h.service.UpdatePatient(r.Context(), donorID); err != nil {
		apierror.FromError(w, err)
		return
	}

	apierror.JSON(w, http.StatusOK, SyncResponse{
		Success: true,
		DonorID: donorID,
		Action:  ActionUpdated,
		Message: "Patient updated successfully",
	})
}

// ListRegistryPatients handles GET /registry/patients
func (h *Handler) ListRegistryPatients(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r, h.defaultLimit)

	list, err := h.service.ListRegistryPatients(r.Context(), params)
	if err != nil {
		apierror.FromError(w, err)
		return
	}

	patients := make([]RegistryPatientResponse, 0, len(list.Patients))
	for _, p := range list.Patients {
		patients = append(patients, RegistryPatientResponse{
			PatientID:        p.PatientID.String(),
			WmdaID:           p.WmdaID.String(),
			Status:           p.Status,
			DateOfBirth:      p.DateOfBirth,
			Ethnicity:        p.Ethnicity,
			AssignedUserName: p.AssignedUserName,
			LastUpdated:      p.LastUpdated,
			RequestSummary:   p.RequestSummaryText(),
		})
	}

	apierror.JSON(w, http.StatusOK, RegistryPatientListResponse{
		Success:    true,
		Patients:   patients,
		Pagination: params.CalculateMeta(list.Paging.TotalCount),
	})
}
