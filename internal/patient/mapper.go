package patient

import (
	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

// ToPatientPayload builds the create body for rec. It copies the donor's
// demographics and HLA typing verbatim and fills the rest from the
// Placeholder constants.
func ToPatientPayload(rec *donor.Record) registry.PatientPayload {
	return registry.PatientPayload{
		PatientID:   rec.DonorID,
		HLA:         rec.HLA.Registry(),
		IDM:         registry.IDM{CMVStatus: PlaceholderCMVStatus},
		DateOfBirth: rec.DateOfBirth,
		Diagnosis: registry.Diagnosis{
			DiagnosisCode: PlaceholderDiagnosisCode,
			DiagnosisText: PlaceholderDiagnosisText,
			DiagnosisDate: PlaceholderDiagnosisDate,
		},
		DiseasePhase:       PlaceholderDiseasePhase,
		Ethnicity:          rec.Ethnicity,
		PoolCountryCode:    PlaceholderPoolCountryCode,
		TransplantCentreID: PlaceholderTransplantCentreID,
		ABO:                PlaceholderABO,
		Rhesus:             PlaceholderRhesus,
		Weight:             PlaceholderWeight,
		Sex:                rec.Sex,
		LegalTerms:         PlaceholderLegalTerms,
	}
}

// ToUpdatePayload is ToPatientPayload addressed to the registry patient rec
// was registered as.
func ToUpdatePayload(rec *donor.Record) registry.PatientPayload {
	p := ToPatientPayload(rec)
	p.WmdaID = rec.PatientRegistryID
	return p
}
