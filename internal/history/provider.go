// Package history serves prior-history summaries used as agent context.
// Fixture-backed for now; a records-system client would slot in behind the
// same lookup.
package history

import "github.com/vitalia/teleconsulta/internal/domain"

var records = map[string]domain.PatientHistorySummary{
	"1": {
		PatientID:          "1",
		Summary:            "Paciente de 45 años, hipertensión en control con enalapril 10 mg. Última consulta por cefalea tensional. Sin alergias medicamentosas conocidas.",
		LastVisit:          "2024-01-15",
		RelevantBackground: []string{"HTA", "Dislipidemia"},
		CurrentMedication:  []string{"Enalapril 10 mg 1x día", "Atorvastatina 20 mg nocturna"},
	},
	"2": {
		PatientID:          "2",
		Summary:            "Paciente de 32 años, asma leve intermitente. Alergia a penicilina. Última consulta por control de asma, bien controlada.",
		LastVisit:          "2024-02-01",
		RelevantBackground: []string{"Asma", "Rinitis alérgica"},
		CurrentMedication:  []string{"Salbutamol inhalador rescate", "Montelukast 10 mg nocturno"},
	},
	"695bd5e7e2a3a01d24f01186": {
		PatientID:          "695bd5e7e2a3a01d24f01186",
		Summary:            "Paciente en seguimiento. Historia disponible para contexto del agente. Última valoración según registro.",
		LastVisit:          "2024-02-01",
		RelevantBackground: []string{},
		CurrentMedication:  []string{},
	},
}

// Provider implements core.HistoryProvider over the fixture set.
type Provider struct{}

func NewProvider() *Provider { return &Provider{} }

// Lookup returns the record for the id, or the generic no-history record
// with the requested id substituted.
func (p *Provider) Lookup(patientID string) domain.PatientHistorySummary {
	if h, ok := records[patientID]; ok {
		return h
	}
	return domain.PatientHistorySummary{
		PatientID:          patientID,
		Summary:            "Paciente sin historia previa registrada en el sistema. Considerar anamnesis completa.",
		RelevantBackground: []string{},
		CurrentMedication:  []string{},
	}
}
