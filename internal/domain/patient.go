package domain

import "strings"

// PatientHistorySummary is the read-only prior-history record used as agent
// context, keyed by patient id.
type PatientHistorySummary struct {
	PatientID          string   `json:"patientId"`
	Summary            string   `json:"resumen"`
	LastVisit          string   `json:"ultimaConsulta,omitempty"`
	RelevantBackground []string `json:"antecedentesRelevantes"`
	CurrentMedication  []string `json:"medicacionActual"`
}

// ContextText flattens the record into the plain-text block embedded in the
// agent prompt. Empty parts are omitted.
func (h PatientHistorySummary) ContextText() string {
	parts := make([]string, 0, 4)
	if h.Summary != "" {
		parts = append(parts, h.Summary)
	}
	if h.LastVisit != "" {
		parts = append(parts, "Última consulta: "+h.LastVisit)
	}
	if len(h.RelevantBackground) > 0 {
		parts = append(parts, strings.Join(h.RelevantBackground, ", "))
	}
	if len(h.CurrentMedication) > 0 {
		parts = append(parts, strings.Join(h.CurrentMedication, ", "))
	}
	return strings.Join(parts, "\n")
}
