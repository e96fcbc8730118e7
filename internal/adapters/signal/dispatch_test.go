package signal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalia/teleconsulta/internal/agent"
	"github.com/vitalia/teleconsulta/internal/app"
	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/domain"
	"github.com/vitalia/teleconsulta/internal/history"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) messages(t *testing.T) []envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

type fakeTranscriber struct {
	mu       sync.Mutex
	sessions []*fakeTranscriberSession
}

type fakeTranscriberSession struct {
	ctx   context.Context
	audio <-chan []byte
	cb    core.StreamCallbacks
}

func (f *fakeTranscriber) StartStream(ctx context.Context, _ core.StreamConfig, audio <-chan []byte, cb core.StreamCallbacks) {
	f.mu.Lock()
	f.sessions = append(f.sessions, &fakeTranscriberSession{ctx: ctx, audio: audio, cb: cb})
	f.mu.Unlock()
}

func (f *fakeTranscriber) last(t *testing.T) *fakeTranscriberSession {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sessions)
	return f.sessions[len(f.sessions)-1]
}

type fakeInvoker struct {
	response string
	err      error
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

type fixture struct {
	ctl    *Controller
	medico *fakeConn
	pac    *fakeConn
}

func newFixture(inv core.AgentInvoker) *fixture {
	rooms := app.NewRegistry()
	streams := app.NewStreamManager(&fakeTranscriber{}, core.StreamConfig{SampleRate: 16000, Language: "es-ES"})
	ctl := NewController(rooms, streams, history.NewProvider(), agent.NewGateway(inv))

	f := &fixture{ctl: ctl, medico: &fakeConn{}, pac: &fakeConn{}}
	rooms.Join("med", f.medico, core.ChannelSession{RoomID: "consulta-1", Role: "medico", PatientID: "1"}, func() {})
	rooms.Join("pac", f.pac, core.ChannelSession{RoomID: "consulta-1", Role: "paciente"}, func() {})
	return f
}

func dispatch(t *testing.T, f *fixture, sid core.SessionID, c *fakeConn, raw string) {
	t.Helper()
	f.ctl.handleMessage(context.Background(), sid, c, []byte(raw))
}

func TestPatientHistoryRepliesPrivately(t *testing.T) {
	f := newFixture(&fakeInvoker{})

	dispatch(t, f, "med", f.medico, `{"type":"request_patient_history","payload":{"patientId":"1"}}`)

	msgs := f.medico.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "patient_history", msgs[0].Type)

	body, err := json.Marshal(msgs[0].Payload)
	require.NoError(t, err)
	var hist domain.PatientHistorySummary
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Equal(t, "1", hist.PatientID)
	assert.Equal(t, "2024-01-15", hist.LastVisit)

	assert.Empty(t, f.pac.messages(t), "history is private to the requester")
}

func TestPatientHistoryDefaultsPatientID(t *testing.T) {
	f := newFixture(&fakeInvoker{})

	dispatch(t, f, "med", f.medico, `{"type":"request_patient_history","payload":{}}`)

	msgs := f.medico.messages(t)
	require.Len(t, msgs, 1)
	body, _ := json.Marshal(msgs[0].Payload)
	var hist domain.PatientHistorySummary
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Equal(t, "1", hist.PatientID)
}

func TestSectionActionReachesEveryoneIncludingSender(t *testing.T) {
	f := newFixture(&fakeInvoker{})

	dispatch(t, f, "med", f.medico, `{"type":"section_action","payload":{"seccion":"diagnosticos","accion":"aceptada"}}`)

	for _, c := range []*fakeConn{f.medico, f.pac} {
		msgs := c.messages(t)
		require.Len(t, msgs, 1)
		assert.Equal(t, "section_action", msgs[0].Type)

		body, _ := json.Marshal(msgs[0].Payload)
		var action domain.SectionAction
		require.NoError(t, json.Unmarshal(body, &action))
		assert.Equal(t, "diagnosticos", action.Section)
		assert.Equal(t, domain.ActionAccepted, action.Action)
	}
}

func TestTranscriptionRelayedRoomWide(t *testing.T) {
	f := newFixture(&fakeInvoker{})

	dispatch(t, f, "pac", f.pac, `{"type":"transcription","payload":{"text":"me duele la cabeza","isPartial":false,"participant":"paciente"}}`)

	for _, c := range []*fakeConn{f.medico, f.pac} {
		msgs := c.messages(t)
		require.Len(t, msgs, 1)
		assert.Equal(t, "transcription", msgs[0].Type)
	}
}

func TestProcessWithAgentBroadcastsProposal(t *testing.T) {
	f := newFixture(&fakeInvoker{response: `{"resumen":"Paciente con cefalea.","propuestas":[{"seccion":"motivoAtencion","contenido":"Cefalea de dos días."}]}`})

	f.ctl.handleProcessWithAgent(context.Background(), "med", f.medico, json.RawMessage(`{"patientId":"1","transcription":"me duele la cabeza","isPartial":false}`))

	for _, c := range []*fakeConn{f.medico, f.pac} {
		msgs := c.messages(t)
		require.Len(t, msgs, 1)
		assert.Equal(t, "proposal", msgs[0].Type)

		body, _ := json.Marshal(msgs[0].Payload)
		var resp domain.AgentResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, "Paciente con cefalea.", resp.Summary)
		require.Len(t, resp.Proposals, 1)
		assert.Equal(t, domain.Section("motivoAtencion"), resp.Proposals[0].Section)
	}
}

func TestProcessWithAgentUnconfiguredDegradesGracefully(t *testing.T) {
	f := newFixture(&fakeInvoker{err: core.ErrAgentNotConfigured})

	f.ctl.handleProcessWithAgent(context.Background(), "med", f.medico, json.RawMessage(`{"transcription":"hola"}`))

	msgs := f.medico.messages(t)
	require.Len(t, msgs, 1, "no proposal_error when the agent is merely unconfigured")
	assert.Equal(t, "proposal", msgs[0].Type)

	body, _ := json.Marshal(msgs[0].Payload)
	var resp domain.AgentResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Contains(t, resp.Summary, "no configurado")
	assert.Empty(t, resp.Proposals)
}

func TestProcessWithAgentFailureIsPrivateError(t *testing.T) {
	f := newFixture(&fakeInvoker{err: errors.New("throttled")})

	f.ctl.handleProcessWithAgent(context.Background(), "med", f.medico, json.RawMessage(`{"transcription":"hola"}`))

	types := func(c *fakeConn) []string {
		var out []string
		for _, m := range c.messages(t) {
			out = append(out, m.Type)
		}
		return out
	}

	assert.Contains(t, types(f.medico), "proposal_error")
	assert.NotContains(t, types(f.pac), "proposal_error", "errors stay private to the requester")
}

func TestProcessWithAgentSuppressesEmptyResult(t *testing.T) {
	f := newFixture(&fakeInvoker{response: `{"resumen":"","propuestas":[]}`})

	f.ctl.handleProcessWithAgent(context.Background(), "med", f.medico, json.RawMessage(`{"transcription":"eh"}`))

	assert.Empty(t, f.medico.messages(t))
	assert.Empty(t, f.pac.messages(t))
}

func TestProcessWithAgentDropsUnknownSections(t *testing.T) {
	f := newFixture(&fakeInvoker{response: `{"resumen":"ok","propuestas":[{"seccion":"inventada","contenido":"x"},{"seccion":"diagnosticos","contenido":"HTA"}]}`})

	f.ctl.handleProcessWithAgent(context.Background(), "med", f.medico, json.RawMessage(`{"transcription":"hola"}`))

	msgs := f.medico.messages(t)
	require.Len(t, msgs, 1)
	body, _ := json.Marshal(msgs[0].Payload)
	var resp domain.AgentResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Proposals, 1)
	assert.Equal(t, domain.Section("diagnosticos"), resp.Proposals[0].Section)
}

func TestProcessWithAgentRateLimited(t *testing.T) {
	f := newFixture(&fakeInvoker{response: `{"resumen":"ok","propuestas":[]}`})

	for i := 0; i < agentCallLimit; i++ {
		require.True(t, f.ctl.agentLimiter.Allow("med"))
	}

	f.ctl.handleProcessWithAgent(context.Background(), "med", f.medico, json.RawMessage(`{"transcription":"hola"}`))

	msgs := f.medico.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "proposal_error", msgs[0].Type)
	assert.Empty(t, f.pac.messages(t))
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	f := newFixture(&fakeInvoker{})

	dispatch(t, f, "med", f.medico, `{"type":"mystery","payload":{}}`)
	dispatch(t, f, "med", f.medico, `not even json`)

	assert.Empty(t, f.medico.messages(t))
	assert.Empty(t, f.pac.messages(t))
	_, ok := f.ctl.Rooms.SessionOf("med")
	assert.True(t, ok, "connection survives unknown and malformed input")
}

func TestAudioStreamLifecycle(t *testing.T) {
	tr := &fakeTranscriber{}
	rooms := app.NewRegistry()
	streams := app.NewStreamManager(tr, core.StreamConfig{SampleRate: 16000, Language: "es-ES"})
	ctl := NewController(rooms, streams, history.NewProvider(), agent.NewGateway(&fakeInvoker{}))

	med := &fakeConn{}
	pac := &fakeConn{}
	rooms.Join("med", med, core.ChannelSession{RoomID: "consulta-1", Role: "medico"}, func() {})
	rooms.Join("pac", pac, core.ChannelSession{RoomID: "consulta-1", Role: "paciente"}, func() {})

	ctl.handleMessage(context.Background(), "med", med, []byte(`{"type":"audio_stream_start","payload":{"participant":"medico"}}`))
	require.True(t, streams.Streaming("med"))
	sess := tr.last(t)

	chunk := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	ctl.handleMessage(context.Background(), "med", med, []byte(`{"type":"audio_chunk","payload":{"data":"`+chunk+`"}}`))

	select {
	case got := <-sess.audio:
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
	case <-time.After(time.Second):
		t.Fatal("chunk never reached the transcriber")
	}

	// a bad chunk is dropped without tearing the stream down
	ctl.handleMessage(context.Background(), "med", med, []byte(`{"type":"audio_chunk","payload":{"data":"%%%not-base64%%%"}}`))
	assert.True(t, streams.Streaming("med"))

	ctl.handleMessage(context.Background(), "med", med, []byte(`{"type":"audio_stream_end"}`))
	assert.False(t, streams.Streaming("med"))

	select {
	case <-sess.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stream context not cancelled on end")
	}
}

func TestAudioResultsBroadcastWithParticipant(t *testing.T) {
	tr := &fakeTranscriber{}
	rooms := app.NewRegistry()
	streams := app.NewStreamManager(tr, core.StreamConfig{SampleRate: 16000, Language: "es-ES"})
	ctl := NewController(rooms, streams, history.NewProvider(), agent.NewGateway(&fakeInvoker{}))

	med := &fakeConn{}
	pac := &fakeConn{}
	rooms.Join("med", med, core.ChannelSession{RoomID: "consulta-1", Role: "medico"}, func() {})
	rooms.Join("pac", pac, core.ChannelSession{RoomID: "consulta-1", Role: "paciente"}, func() {})

	ctl.handleMessage(context.Background(), "pac", pac, []byte(`{"type":"audio_stream_start","payload":{"participant":"paciente"}}`))
	sess := tr.last(t)

	sess.cb.OnResult("me duele la cabeza", true)

	for _, c := range []*fakeConn{med, pac} {
		msgs := c.messages(t)
		require.Len(t, msgs, 1)
		assert.Equal(t, "transcription", msgs[0].Type)

		body, _ := json.Marshal(msgs[0].Payload)
		var seg domain.TranscriptSegment
		require.NoError(t, json.Unmarshal(body, &seg))
		assert.Equal(t, "me duele la cabeza", seg.Text)
		assert.True(t, seg.IsPartial)
		assert.Equal(t, domain.ParticipantPatient, seg.Participant)
		assert.NotZero(t, seg.Timestamp)
	}
}

func TestAudioStreamErrorIsPrivate(t *testing.T) {
	tr := &fakeTranscriber{}
	rooms := app.NewRegistry()
	streams := app.NewStreamManager(tr, core.StreamConfig{SampleRate: 16000, Language: "es-ES"})
	ctl := NewController(rooms, streams, history.NewProvider(), agent.NewGateway(&fakeInvoker{}))

	med := &fakeConn{}
	pac := &fakeConn{}
	rooms.Join("med", med, core.ChannelSession{RoomID: "consulta-1", Role: "medico"}, func() {})
	rooms.Join("pac", pac, core.ChannelSession{RoomID: "consulta-1", Role: "paciente"}, func() {})

	ctl.handleMessage(context.Background(), "med", med, []byte(`{"type":"audio_stream_start","payload":{}}`))
	tr.last(t).cb.OnError(errors.New("upstream closed"))

	msgs := med.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "transcription_error", msgs[0].Type)
	assert.Empty(t, pac.messages(t))
}

func TestCallRateLimiterWindow(t *testing.T) {
	rl := NewCallRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("s"))
	}
	assert.False(t, rl.Allow("s"))
	assert.True(t, rl.Allow("other"), "windows are per session")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("s"), "window slides")

	rl.Forget("s")
	assert.True(t, rl.Allow("s"))
}
