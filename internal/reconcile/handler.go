package reconcile

import (
	"fmt"
	"net/http"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/apierror"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Reconcile handles POST /registry/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ReconcileAll(r.Context())
	if err != nil {
		apierror.FromError(w, err)
		return
	}

	apierror.JSON(w, http.StatusOK, RunResponse{
		Success: true,
		Result:  result,
		Message: fmt.Sprintf("Reconciled %d registry patients", result.Total()),
	})
}
