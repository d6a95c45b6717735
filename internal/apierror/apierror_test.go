package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/locker"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantType     string
		wantUpstream int
	}{
		{"donor not found", donor.ErrDonorNotFound, http.StatusNotFound, "not_found", 0},
		{"wrapped registry id not found", fmt.Errorf("search: %w", donor.ErrPatientRegistryIDNotFound), http.StatusNotFound, "not_found", 0},
		{"locked", locker.ErrLocked, http.StatusConflict, "locked", 0},
		{"auth", fmt.Errorf("unable to get bearer token: %w", &registry.AuthError{StatusCode: 401, Body: "nope"}), http.StatusBadGateway, "registry_auth_failed", 401},
		{"registry", &registry.RegistryError{Operation: "creating patient", StatusCode: 500, Body: "Internal Server Error"}, http.StatusBadGateway, "registry_error", 500},
		{"store", &donor.StoreError{Op: "fetch donor", Err: errors.New("conn reset")}, http.StatusInternalServerError, "store_error", 0},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FromError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantUpstream, body.UpstreamStatus)
		})
	}
}

func TestFromError_RegistryBodyIsVisible(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(rr, &registry.RegistryError{Operation: "retrieving search results", StatusCode: 500, Body: "Internal Server Error"})

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "error retrieving search results: 500, Response: Internal Server Error", body.Message)
}
