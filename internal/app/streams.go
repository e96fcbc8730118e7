package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
)

// stream is one live recognition session. The audio channel has capacity
// one: a push parks until the provider consumes the previous chunk, so the
// network connection throttles to the provider's consumption rate and at
// most one chunk is in flight.
type stream struct {
	audio  chan []byte
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

func (s *stream) push(chunk []byte) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.audio <- chunk:
	case <-s.done:
	}
}

func (s *stream) stop() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

// StreamManager owns the at-most-one live transcription stream per
// connection: Idle → Streaming → Idle.
type StreamManager struct {
	mu       sync.Mutex
	provider core.Transcriber
	cfg      core.StreamConfig
	active   map[core.SessionID]*stream
}

func NewStreamManager(provider core.Transcriber, cfg core.StreamConfig) *StreamManager {
	return &StreamManager{
		provider: provider,
		cfg:      cfg,
		active:   make(map[core.SessionID]*stream),
	}
}

// Start opens a provider stream for the connection. An already streaming
// connection has its stream terminated first, so two provider streams never
// coexist for one sid. A provider error terminates the stream before the
// error callback fires, so the connection is back to Idle and pending
// pushes unblock; a provider that stops consuming audio can never park the
// caller of Push.
func (m *StreamManager) Start(ctx context.Context, sid core.SessionID, cb core.StreamCallbacks) {
	m.mu.Lock()
	if prev, ok := m.active[sid]; ok {
		prev.stop()
		log.Info().Str("module", "app.streams").Str("sid", string(sid)).Msg("superseded active stream")
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &stream{
		audio:  make(chan []byte, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	m.active[sid] = s
	m.mu.Unlock()

	onError := cb.OnError
	cb.OnError = func(err error) {
		m.release(sid, s)
		if onError != nil {
			onError(err)
		}
	}

	m.provider.StartStream(ctx, m.cfg, s.audio, cb)
	log.Info().Str("module", "app.streams").Str("sid", string(sid)).Str("language", m.cfg.Language).Int("sample_rate", m.cfg.SampleRate).Msg("stream started")
}

// Push forwards one decoded audio chunk to the connection's stream. A
// connection with no active stream is a no-op; zero-length chunks are
// forwarded as keep-alives and dropped by the provider adapter.
func (m *StreamManager) Push(sid core.SessionID, chunk []byte) bool {
	m.mu.Lock()
	s, ok := m.active[sid]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.push(chunk)
	return true
}

// Stop signals end-of-stream to the provider and returns the connection to
// Idle. Safe to call when already Idle.
func (m *StreamManager) Stop(sid core.SessionID) {
	m.mu.Lock()
	s, ok := m.active[sid]
	delete(m.active, sid)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.stop()
	log.Info().Str("module", "app.streams").Str("sid", string(sid)).Msg("stream stopped")
}

// release terminates a failed stream and returns its connection to Idle.
// A superseding stream already registered under the same sid is left in
// place.
func (m *StreamManager) release(sid core.SessionID, s *stream) {
	s.stop()
	m.mu.Lock()
	if m.active[sid] == s {
		delete(m.active, sid)
	}
	m.mu.Unlock()
	log.Info().Str("module", "app.streams").Str("sid", string(sid)).Msg("stream released after provider error")
}

// Streaming reports whether the connection currently owns a live stream.
func (m *StreamManager) Streaming(sid core.SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[sid]
	return ok
}
