package signal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/agent"
	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/domain"
)

// handleTranscription relays a client-produced transcript segment to the
// whole room, sender included.
func (ctl *Controller) handleTranscription(sid core.SessionID, payload json.RawMessage) {
	sess, ok := ctl.Rooms.SessionOf(sid)
	if !ok {
		return
	}
	var seg domain.TranscriptSegment
	if err := json.Unmarshal(payload, &seg); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad transcription payload")
		return
	}
	ctl.broadcastJSON(sess.RoomID, envelope{Type: "transcription", Payload: seg}, "")
}

// handlePatientHistory replies privately to the requester.
func (ctl *Controller) handlePatientHistory(c core.SignalConnection, payload json.RawMessage) {
	var p struct {
		PatientID string `json:"patientId"`
	}
	_ = json.Unmarshal(payload, &p)
	if p.PatientID == "" {
		p.PatientID = "1"
	}
	ctl.sendJSON(c, envelope{Type: "patient_history", Payload: ctl.History.Lookup(p.PatientID)})
}

// handleProcessWithAgent runs one inference round and broadcasts the
// resulting proposal to the room. Failures surface as a private
// proposal_error to the requester plus a degraded proposal broadcast; they
// never end the connection.
func (ctl *Controller) handleProcessWithAgent(ctx context.Context, sid core.SessionID, c core.SignalConnection, payload json.RawMessage) {
	sess, ok := ctl.Rooms.SessionOf(sid)
	if !ok {
		return
	}
	var p struct {
		PatientID       string            `json:"patientId"`
		Transcription   string            `json:"transcription"`
		IsPartial       bool              `json:"isPartial"`
		CurrentSections map[string]string `json:"currentSections"`
		ActiveSection   string            `json:"activeSection"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad process_with_agent payload")
		return
	}
	if p.PatientID == "" {
		p.PatientID = "1"
	}
	if !ctl.agentLimiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("agent call rate limited")
		ctl.sendJSON(c, envelope{Type: "proposal_error", Payload: map[string]string{"error": "demasiadas solicitudes al agente, intenta de nuevo en unos segundos"}})
		return
	}

	hist := ctl.History.Lookup(p.PatientID)
	raw, invokeErr := ctl.Agent.Invoke(ctx, agent.Input{
		PatientHistoryContext: hist.ContextText(),
		TranscriptSegment:     p.Transcription,
		IsPartial:             p.IsPartial,
		CurrentSections:       p.CurrentSections,
		ActiveSection:         p.ActiveSection,
	})
	if invokeErr != nil {
		ctl.sendJSON(c, envelope{Type: "proposal_error", Payload: map[string]string{"error": invokeErr.Error()}})
	}

	parsed := agent.ParseResponse(raw)
	parsed.Proposals = domain.FilterProposals(parsed.Proposals)
	if invokeErr == nil && strings.TrimSpace(parsed.Summary) == "" && len(parsed.Proposals) == 0 {
		return
	}
	ctl.broadcastJSON(sess.RoomID, envelope{Type: "proposal", Payload: parsed}, "")
}

// handleSectionAction relays a clinician accept/reject/edit decision to the
// whole room, sender included, so every view converges.
func (ctl *Controller) handleSectionAction(sid core.SessionID, payload json.RawMessage) {
	sess, ok := ctl.Rooms.SessionOf(sid)
	if !ok {
		return
	}
	var action domain.SectionAction
	if err := json.Unmarshal(payload, &action); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad section_action payload")
		return
	}
	ctl.broadcastJSON(sess.RoomID, envelope{Type: "section_action", Payload: action}, "")
}
