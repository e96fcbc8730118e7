package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vitalia/teleconsulta/internal/domain"
)

// BuildPrompt renders the natural-language instruction the agent receives.
// The agent is expected to answer with a JSON object carrying "resumen" and
// "propuestas".
func BuildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Eres un asistente clínico. Contexto de historia previa del paciente:\n%s\n\n", in.PatientHistoryContext)

	marker := "segmento final"
	if in.IsPartial {
		marker = "parcial"
	}
	fmt.Fprintf(&b, "Transcripción de la consulta (%s):\n%s\n\n", marker, in.TranscriptSegment)

	if len(in.CurrentSections) > 0 {
		current, _ := json.Marshal(in.CurrentSections)
		fmt.Fprintf(&b, "Secciones ya propuestas/actuales:\n%s\n", current)
	}
	if in.ActiveSection != "" {
		fmt.Fprintf(&b, `
IMPORTANTE - Sección activa: %q.
- El médico está llenando SOLO esta sección. Las "propuestas" deben ser únicamente para esta sección.
- IGNORA en la transcripción: saludos iniciales, despedidas, frases de apertura genéricas ("cuéntame qué lo trae", "qué lo trae el día de hoy", "¿en qué puedo ayudarle?", "buenos días/tardes"), y cualquier diálogo que no aporte datos clínicos para esta sección.
- El "resumen" debe ser SOLO lo relevante para la sección activa. Si hasta ahora solo hay saludos y preguntas de apertura sin contenido clínico, devuelve resumen vacío o "Aún no hay información clínica relevante para esta sección."
`, in.ActiveSection)
	}

	scope := "Solo incluye secciones que puedas completar con la transcripción."
	if in.ActiveSection != "" {
		scope = fmt.Sprintf("Solo incluye la sección %q.", in.ActiveSection)
	}
	fmt.Fprintf(&b, `
Responde en JSON con exactamente dos claves:
- "resumen": resumen breve solo de la información clínica relevante para la consulta (o para la sección activa si se indicó). No incluyas saludos ni preguntas genéricas de apertura.
- "propuestas": array de { "seccion": "nombreSeccion", "contenido": "texto" }. %s Nombres de sección válidos: %s.`,
		scope, sectionNames())

	return b.String()
}

func sectionNames() string {
	names := make([]string, len(domain.HistorySections))
	for i, s := range domain.HistorySections {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
