package search

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/apierror"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CreateSearch handles POST /donors/{donorId}/searches
func (h *Handler) CreateSearch(w http.ResponseWriter, r *http.Request) {
	donorID := mux.Vars(r)["donorId"]

	searchID, err := h.service.CreateSearch(r.Context(), donorID)
	if errors.Is(err, ErrMissingSearchID) {
		apierror.Respond(w, http.StatusBadGateway, "missing_search_id", err.Error())
		return
	}
	if err != nil {
		apierror.FromError(w, err)
		return
	}

	apierror.JSON(w, http.StatusCreated, CreateSearchResponse{
		Success:  true,
		DonorID:  donorID,
		SearchID: searchID,
		Message:  "Search created successfully",
	})
}

// ListSearches handles GET /donors/{donorId}/searches
func (h *Handler) ListSearches(w http.ResponseWriter, r *http.Request) {
	donorID := mux.Vars(r)["donorId"]

	result, err := h.service.ListSearches(r.Context(), donorID)
	h.respondResult(w, donorID, result, err)
}

// GetSearchSummary handles GET /donors/{donorId}/searches/summary
func (h *Handler) GetSearchSummary(w http.ResponseWriter, r *http.Request) {
	donorID := mux.Vars(r)["donorId"]

	result, err := h.service.GetSearchSummary(r.Context(), donorID)
	h.respondResult(w, donorID, result, err)
}

func (h *Handler) respondResult(w http.ResponseWriter, donorID string, result json.RawMessage, err error) {
	if err != nil {
		apierror.FromError(w, err)
		return
	}
	apierror.JSON(w, http.StatusOK, ResultResponse{
		Success: true,
		DonorID: donorID,
		Result:  result,
	})
}
