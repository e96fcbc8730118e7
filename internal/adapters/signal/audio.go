package signal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/domain"
)

// handleAudioStart opens the connection's transcription stream. Results are
// broadcast room-wide; stream errors go back to this connection only.
func (ctl *Controller) handleAudioStart(ctx context.Context, sid core.SessionID, c core.SignalConnection, payload json.RawMessage) {
	sess, ok := ctl.Rooms.SessionOf(sid)
	if !ok {
		return
	}
	var p struct {
		Participant domain.Participant `json:"participant"`
	}
	_ = json.Unmarshal(payload, &p)
	participant := p.Participant
	if participant == "" {
		participant = "unknown"
	}
	roomID := sess.RoomID

	ctl.Streams.Start(ctx, sid, core.StreamCallbacks{
		OnResult: func(text string, isPartial bool) {
			ctl.broadcastJSON(roomID, envelope{Type: "transcription", Payload: domain.TranscriptSegment{
				Text:        text,
				IsPartial:   isPartial,
				Participant: participant,
				Timestamp:   time.Now().UnixMilli(),
			}}, "")
		},
		OnError: func(err error) {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("transcription stream error")
			ctl.sendJSON(c, envelope{Type: "transcription_error", Payload: map[string]string{"error": err.Error()}})
		},
	})
}

// handleAudioChunk decodes one base64 chunk and forwards it. Decode
// failures are logged and dropped; the stream stays up.
func (ctl *Controller) handleAudioChunk(sid core.SessionID, payload json.RawMessage) {
	var p struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad audio_chunk payload")
		return
	}
	chunk, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("audio chunk decode error")
		return
	}
	ctl.Streams.Push(sid, chunk)
}

func (ctl *Controller) handleAudioEnd(sid core.SessionID) {
	ctl.Streams.Stop(sid)
}
