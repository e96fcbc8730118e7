package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/domain"
)

type sessionEntry struct {
	Session core.ChannelSession
	Conn    core.SignalConnection
	Cancel  context.CancelFunc
}

// Registry owns room membership and per-connection sessions. It is the only
// writer of both maps; constructed once in main and passed by pointer, so
// tests run against an isolated instance.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[domain.RoomID]map[core.SessionID]core.SignalConnection
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[domain.RoomID]map[core.SessionID]core.SignalConnection),
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Join adds the connection to its room, creating the room on first member.
// A repeated join replaces the session metadata; joining a different room
// moves the member out of the old one first.
func (r *Registry) Join(sid core.SessionID, conn core.SignalConnection, sess core.ChannelSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.sessions[sid]; ok && prev.Session.RoomID != sess.RoomID {
		r.removeFromRoom(sid, prev.Session.RoomID)
	}
	members, ok := r.rooms[sess.RoomID]
	if !ok {
		members = make(map[core.SessionID]core.SignalConnection)
		r.rooms[sess.RoomID] = members
	}
	members[sid] = conn
	r.sessions[sid] = &sessionEntry{Session: sess, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(sess.RoomID)).Str("role", sess.Role).Msg("joined room")
}

// Leave removes the connection from its room, destroys the room when it
// becomes empty and drops the session. Idempotent for unknown sids. The
// per-connection context is cancelled so any dependent work stops.
func (r *Registry) Leave(sid core.SessionID) {
	r.mu.Lock()
	entry, ok := r.sessions[sid]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.removeFromRoom(sid, entry.Session.RoomID)
	delete(r.sessions, sid)
	r.mu.Unlock()

	if entry.Cancel != nil {
		entry.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(entry.Session.RoomID)).Msg("left room")
}

// removeFromRoom must be called with r.mu held.
func (r *Registry) removeFromRoom(sid core.SessionID, roomID domain.RoomID) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, sid)
	if len(members) == 0 {
		delete(r.rooms, roomID)
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("room destroyed")
	}
}

// Broadcast sends the frame to every member of the room except exclude.
// Delivery is best-effort per connection: closed or backpressured members
// are skipped. Unknown rooms are a no-op. Returns the delivered count.
func (r *Registry) Broadcast(roomID domain.RoomID, data core.Frame, exclude core.SessionID) int {
	r.mu.RLock()
	members, ok := r.rooms[roomID]
	if !ok {
		r.mu.RUnlock()
		return 0
	}
	targets := make([]core.SignalConnection, 0, len(members))
	for sid, conn := range members {
		if sid == exclude {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	sent := 0
	for _, conn := range targets {
		if err := conn.TrySend(data); err != nil {
			log.Debug().Err(err).Str("module", "app.registry").Str("room", string(roomID)).Msg("skipped member on broadcast")
			continue
		}
		sent++
	}
	return sent
}

func (r *Registry) SessionOf(sid core.SessionID) (core.ChannelSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.sessions[sid]; ok {
		return entry.Session, true
	}
	return core.ChannelSession{}, false
}

func (r *Registry) MemberCount(roomID domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
