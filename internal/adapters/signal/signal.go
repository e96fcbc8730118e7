// Package signal is the WebSocket adapter: one bidirectional channel per
// consultation participant, dispatched into rooms.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/agent"
	"github.com/vitalia/teleconsulta/internal/app"
	"github.com/vitalia/teleconsulta/internal/core"
	"github.com/vitalia/teleconsulta/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// agent calls are expensive; cap bursts per connection
const (
	agentCallLimit  = 8
	agentCallWindow = 10 * time.Second
)

type Controller struct {
	Rooms   *app.Registry
	Streams *app.StreamManager
	History core.HistoryProvider
	Agent   *agent.Gateway

	// ReadLimit caps inbound frame size; zero means no cap. PingPeriod
	// drives the keepalive ticker in writePump; zero disables pings and
	// the matching read deadline.
	ReadLimit  int64
	PingPeriod time.Duration

	agentLimiter *CallRateLimiter
}

func NewController(rooms *app.Registry, streams *app.StreamManager, history core.HistoryProvider, gw *agent.Gateway) *Controller {
	return &Controller{
		Rooms:        rooms,
		Streams:      streams,
		History:      history,
		Agent:        gw,
		agentLimiter: NewCallRateLimiter(agentCallLimit, agentCallWindow),
	}
}

type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleConsult upgrades the request and joins the connection to its room.
// Room and participant metadata arrive as connection-time query params.
func (ctl *Controller) HandleConsult(ctx context.Context, c *gin.Context) {
	roomID := c.DefaultQuery("roomId", "default")
	role := c.Query("role")
	patientID := c.Query("patientId")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}
	if ctl.PingPeriod > 0 {
		pongWait := ctl.PingPeriod * 10 / 9
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", roomID).Str("role", role).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Rooms.Join(sid, conn, core.ChannelSession{
		RoomID:    domain.RoomID(roomID),
		Role:      role,
		PatientID: patientID,
	}, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

// disconnect runs the mandatory cleanup for a closing connection: the
// provider stream first, then room membership, then the socket.
func (ctl *Controller) disconnect(sid core.SessionID, c *WsConn) {
	ctl.Streams.Stop(sid)
	ctl.Rooms.Leave(sid)
	ctl.agentLimiter.Forget(sid)
	c.Close()
}
