package domain

// SectionProposal is agent-suggested content for a single record section.
type SectionProposal struct {
	Section Section `json:"seccion"`
	Content string  `json:"contenido"`
}

// AgentResponse is the structured result recovered from the agent's raw
// output. Proposals defaults to an empty slice so the zero value marshals
// as `"propuestas": []` rather than null.
type AgentResponse struct {
	Summary   string            `json:"resumen"`
	Proposals []SectionProposal `json:"propuestas"`
}

// Known accion values for SectionAction; clients may extend.
const (
	ActionProposed = "propuesta"
	ActionAccepted = "aceptada"
	ActionRejected = "rechazada"
	ActionEdited   = "editada"
)

// SectionAction is a clinician decision on a proposed section, relayed
// verbatim to the room.
type SectionAction struct {
	Section string `json:"seccion"`
	Action  string `json:"accion"`
	Content string `json:"contenido,omitempty"`
}
