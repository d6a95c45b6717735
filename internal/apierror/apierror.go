package apierror

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/locker"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// ErrorResponse is the body of every non-2xx operator API answer.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// Respond writes an error body with statusCode.
func Respond(w http.ResponseWriter, statusCode int, errorType, message string) {
	JSON(w, statusCode, ErrorResponse{Error: errorType, Message: message})
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// FromError maps a workflow error onto the operator API:
// lookups that found nothing are 404, a donor or run already being worked
// on is 409, identity and registry failures are 502 and store failures are 500.
func FromError(w http.ResponseWriter, err error) {
	var (
		authErr  *registry.AuthError
		regErr   *registry.RegistryError
		storeErr *donor.StoreError
	)

	switch {
	case donor.IsNotFound(err):
		Respond(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, locker.ErrLocked):
		Respond(w, http.StatusConflict, "locked", err.Error())
	case errors.As(err, &authErr):
		JSON(w, http.StatusBadGateway, ErrorResponse{
			Error:          "registry_auth_failed",
			Message:        err.Error(),
			UpstreamStatus: authErr.StatusCode,
		})
	case errors.As(err, &regErr):
		JSON(w, http.StatusBadGateway, ErrorResponse{
			Error:          "registry_error",
			Message:        err.Error(),
			UpstreamStatus: regErr.StatusCode,
		})
	case errors.As(err, &storeErr):
		Respond(w, http.StatusInternalServerError, "store_error", "donor store unavailable")
	default:
		Respond(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
