package pagination

import (
	"net/http"
	"strconv"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// Default pagination values
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Params is one page request against the registry patient list.
type Params struct {
	Limit    int  `json:"limit"`
	Offset   int  `json:"offset"`
	OnlyMine bool `json:"only_mine"`
}

// Meta contains pagination metadata for responses
type Meta struct {
	Limit        int  `json:"limit"`
	Offset       int  `json:"offset"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// ParseParams reads limit, offset and only_mine from the query string.
// defaultLimit applies when limit is absent or invalid.
func ParseParams(r *http.Request, defaultLimit int) Params {
	p := Params{Limit: defaultLimit}
	q := r.URL.Query()

	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			p.Limit = l
		}
	}

	if offsetStr := q.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			p.Offset = o
		}
	}

	if mineStr := q.Get("only_mine"); mineStr != "" {
		if b, err := strconv.ParseBool(mineStr); err == nil {
			p.OnlyMine = b
		}
	}

	p.Validate()
	return p
}

// Validate ensures pagination parameters are valid and sets defaults if needed
func (p *Params) Validate() {
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Registry converts p into the query parameters of GET /patients.
func (p Params) Registry() registry.PageParams {
	return registry.PageParams{
		Limit:          p.Limit,
		OnlyMyPatients: p.OnlyMine,
		Offset:         p.Offset,
	}
}

// CalculateMeta creates pagination metadata based on the registry's totalCount.
func (p Params) CalculateMeta(totalRecords int) Meta {
	return Meta{
		Limit:        p.Limit,
		Offset:       p.Offset,
		TotalRecords: totalRecords,
		HasNext:      p.Offset+p.Limit < totalRecords,
		HasPrevious:  p.Offset > 0,
	}
}
