package donor

import "github.com/WailSalutem-Health-Care/registry-sync/internal/registry"

// HLATyping is the two-allele typing of one locus as stored in person_data.
type HLATyping struct {
	Field1 string
	Field2 string
}

// Record is one row of person_data.
type Record struct {
	DonorID           string
	DateOfBirth       string
	Ethnicity         string
	Sex               string
	HLA               HLA
	PatientRegistryID string
	SearchID          string
}

// HLA holds the five loci in registry order.
type HLA struct {
	A    HLATyping
	B    HLATyping
	C    HLATyping
	DRB1 HLATyping
	DQB1 HLATyping
}

// HasPatientRegistryID reports whether the registry has already issued a wmdaId for this donor.
func (r *Record) HasPatientRegistryID() bool {
	return r.PatientRegistryID != ""
}

// Registry converts the stored typing into the registry wire shape.
func (h HLA) Registry() registry.HLA {
	return registry.HLA{
		A:    registry.Locus(h.A),
		B:    registry.Locus(h.B),
		C:    registry.Locus(h.C),
		DRB1: registry.Locus(h.DRB1),
		DQB1: registry.Locus(h.DQB1),
	}
}
