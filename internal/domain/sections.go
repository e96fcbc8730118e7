// Package domain contains entity without logic, just meta-data
package domain

// Section is one named subdivision of the structured clinical record.
type Section string

// HistorySections is the fixed catalog, in logical order:
// context → reason → subjective → objective → alerts → diagnoses → plan → recommendations.
var HistorySections = []Section{
	"informacionGeneral",
	"motivoAtencion",
	"revisionSistemas",
	"antecedentes",
	"examenFisico",
	"resultadosParaclinicos",
	"alertasAlergias",
	"diagnosticos",
	"analisisPlan",
	"recomendaciones",
}

var sectionSet = func() map[Section]struct{} {
	m := make(map[Section]struct{}, len(HistorySections))
	for _, s := range HistorySections {
		m[s] = struct{}{}
	}
	return m
}()

// ValidSection reports whether s belongs to the fixed catalog.
func ValidSection(s Section) bool {
	_, ok := sectionSet[s]
	return ok
}

// FilterProposals drops proposals whose section is outside the catalog.
// Order of the surviving proposals is preserved; filtering an already
// filtered slice is a no-op.
func FilterProposals(in []SectionProposal) []SectionProposal {
	out := make([]SectionProposal, 0, len(in))
	for _, p := range in {
		if ValidSection(p.Section) {
			out = append(out, p)
		}
	}
	return out
}
