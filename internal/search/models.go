package search

import (
	"encoding/json"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// Search parameters sent with every new search.
const (
	MatchEngine       = 2
	SearchType        = "DR"
	OverallMismatches = 0
)

// NewRequest builds the search request for the registry patient wmdaID.
func NewRequest(wmdaID string) registry.SearchRequest {
	return registry.SearchRequest{
		WmdaID:                       wmdaID,
		MatchEngine:                  MatchEngine,
		SearchType:                   SearchType,
		OverallMismatches:            OverallMismatches,
		IsCbuAbLowDrb1HighResolution: false,
		SearchOnlyOwnIon:             false,
	}
}

type CreateSearchResponse struct {
	Success  bool   `json:"success"`
	DonorID  string `json:"donor_id"`
	SearchID string `json:"search_id"`
	Message  string `json:"message"`
}

// ResultResponse wraps a registry answer that is passed through untouched.
type ResultResponse struct {
	Success bool            `json:"success"`
	DonorID string          `json:"donor_id"`
	Result  json.RawMessage `json:"result"`
}
