package agent

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/domain"
)

// ParseResponse recovers a structured response from the agent's raw output,
// which may wrap the JSON object in natural-language text. Total: any
// input, including empty or malformed, yields a well-formed response with
// an empty proposal list.
func ParseResponse(raw string) domain.AgentResponse {
	out := domain.AgentResponse{Proposals: []domain.SectionProposal{}}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return out
	}

	var parsed struct {
		Summary   string `json:"resumen"`
		Proposals []struct {
			Section string `json:"seccion"`
			Content string `json:"contenido"`
		} `json:"propuestas"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		log.Debug().Err(err).Str("module", "agent").Msg("unparseable agent output, returning empty response")
		return out
	}

	out.Summary = parsed.Summary
	for _, p := range parsed.Proposals {
		out.Proposals = append(out.Proposals, domain.SectionProposal{
			Section: domain.Section(p.Section),
			Content: p.Content,
		})
	}
	return out
}
