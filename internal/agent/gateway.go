// Package agent turns transcript segments plus patient context into
// structured section proposals via the clinical agent.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/domain"
)

// Input carries everything one inference round needs.
type Input struct {
	PatientHistoryContext string
	TranscriptSegment     string
	IsPartial             bool
	// CurrentSections holds previously proposed section contents, for
	// continuity across rounds.
	CurrentSections map[string]string
	// ActiveSection, when set, scopes proposals and summary to that one
	// section.
	ActiveSection string
}

// Gateway fronts the agent with a non-throwing contract: Invoke always
// returns a parseable payload string. The error return carries the
// classified cause for reporting; the payload is usable either way.
type Gateway struct {
	invoker core.AgentInvoker
}

func NewGateway(invoker core.AgentInvoker) *Gateway {
	return &Gateway{invoker: invoker}
}

// Invoke builds the prompt and runs the agent. Provider failures are
// translated into human-readable fallback payloads; a missing agent
// identity is degraded mode, not an error.
func (g *Gateway) Invoke(ctx context.Context, in Input) (string, error) {
	raw, err := g.invoker.Invoke(ctx, BuildPrompt(in))
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, core.ErrAgentNotConfigured):
		log.Info().Str("module", "agent").Msg("agent not configured, returning canned response")
		return fallbackPayload("Agente no configurado. La transcripción se usará cuando BEDROCK_AGENT_ID esté definido."), nil
	case errors.Is(err, core.ErrUpstreamNotFound):
		log.Warn().Err(err).Str("module", "agent").Msg("agent resource not found")
		return fallbackPayload("Agente no encontrado (404). Crea un agente y configura BEDROCK_AGENT_ID y BEDROCK_AGENT_ALIAS_ID."), err
	default:
		log.Warn().Err(err).Str("module", "agent").Msg("agent invocation failed")
		return fallbackPayload(fmt.Sprintf("Error del agente: %v. Revisa región (AWS_REGION) y permisos del agente.", err)), err
	}
}

func fallbackPayload(summary string) string {
	payload, _ := json.Marshal(domain.AgentResponse{
		Summary:   summary,
		Proposals: []domain.SectionProposal{},
	})
	return string(payload)
}
