package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a registry-issued identifier. The registry encodes wmdaId and
// searchId as either JSON strings or numbers; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("registry id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("registry id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Locus is one HLA locus typed with two alleles.
type Locus struct {
	Field1 string `json:"field1"`
	Field2 string `json:"field2"`
}

// HLA groups the five loci the registry matches on.
type HLA struct {
	A    Locus `json:"a"`
	B    Locus `json:"b"`
	C    Locus `json:"c"`
	DRB1 Locus `json:"drb1"`
	DQB1 Locus `json:"dqb1"`
}

type IDM struct {
	CMVStatus string `json:"cmvStatus"`
}

type Diagnosis struct {
	DiagnosisCode string `json:"diagnosisCode"`
	DiagnosisText string `json:"diagnosisText"`
	DiagnosisDate string `json:"diagnosisDate"`
}

// PatientPayload is the body of POST and PUT /patients. WmdaID is only set
// on updates, where it addresses the record being replaced.
type PatientPayload struct {
	WmdaID             string    `json:"wmdaId,omitempty"`
	PatientID          string    `json:"patientId"`
	HLA                HLA       `json:"hla"`
	IDM                IDM       `json:"idm"`
	DateOfBirth        string    `json:"dateOfBirth"`
	Diagnosis          Diagnosis `json:"diagnosis"`
	DiseasePhase       string    `json:"diseasePhase"`
	Ethnicity          string    `json:"ethnicity"`
	PoolCountryCode    string    `json:"poolCountryCode"`
	TransplantCentreID string    `json:"transplantCentreId"`
	ABO                string    `json:"abo"`
	Rhesus             string    `json:"rhesus"`
	Weight             int       `json:"weight"`
	Sex                string    `json:"sex"`
	LegalTerms         bool      `json:"legalTerms"`
}

// SearchRequest is the body of POST /searches.
type SearchRequest struct {
	WmdaID                       string `json:"wmdaId"`
	MatchEngine                  int    `json:"matchEngine"`
	SearchType                   string `json:"searchType"`
	OverallMismatches            int    `json:"overallMismatches"`
	IsCbuAbLowDrb1HighResolution bool   `json:"isCbuAbLowDrb1HighResolution"`
	SearchOnlyOwnIon             bool   `json:"searchOnlyOwnIon"`
}

type SearchCreated struct {
	SearchID ID `json:"searchId"`
}

// PageParams are the query parameters of GET /patients.
type PageParams struct {
	Limit          int
	OnlyMyPatients bool
	Offset         int
}

type Paging struct {
	TotalCount int `json:"totalCount"`
}

type RequestSummary struct {
	SummaryText string `json:"summaryText"`
}

type PatientRequest struct {
	Summary RequestSummary `json:"summary"`
}

// PatientSummary is one entry of the registry's patient list.
type PatientSummary struct {
	PatientID        ID               `json:"patientId"`
	WmdaID           ID               `json:"wmdaId"`
	Status           string           `json:"status"`
	DateOfBirth      string           `json:"dateOfBirth"`
	Ethnicity        string           `json:"ethnicity"`
	AssignedUserName string           `json:"assignedUserName"`
	LastUpdated      string           `json:"lastUpdated"`
	Requests         []PatientRequest `json:"requests"`
}

// RequestSummaryText returns the first request's summary, or "No requests".
func (p PatientSummary) RequestSummaryText() string {
	if len(p.Requests) == 0 {
		return "No requests"
	}
	return p.Requests[0].Summary.SummaryText
}

type PatientList struct {
	Paging   Paging           `json:"paging"`
	Patients []PatientSummary `json:"patients"`
}
