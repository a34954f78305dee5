// Package gateway is the WebSocket edge: it upgrades connections,
// enforces the auth-first state machine, and bridges frames to the
// lobby. Each connection has exactly one writer goroutine; every
// outbound byte goes through it.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"squirrel-server/apps/server/internal/auth"
	"squirrel-server/apps/server/internal/codec"
	"squirrel-server/apps/server/internal/lobby"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

const (
	outboundBuffer = 256
	readLimit      = 65536
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
)

// Gateway handles the /v1/ws endpoint.
type Gateway struct {
	manager *lobby.Manager
	auth    auth.Service
}

func New(manager *lobby.Manager, authService auth.Service) *Gateway {
	return &Gateway{manager: manager, auth: authService}
}

// HandleWebSocket upgrades the request and runs the connection to
// completion.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	c := &connection{
		gw:       g,
		ws:       ws,
		outbound: make(chan codec.Event, outboundBuffer),
		done:     make(chan struct{}),
	}
	go c.writePump()
	c.readPump()
}

// connection is one client socket. session stays nil until the auth
// handshake succeeds.
type connection struct {
	gw       *Gateway
	ws       *websocket.Conn
	outbound chan codec.Event
	done     chan struct{}
	session  *lobby.PlayerSession
}

func (c *connection) readPump() {
	// The socket itself is closed by writePump after it has flushed any
	// queued events, so a final error or game_close still reaches the
	// client.
	defer func() {
		close(c.done)
		if c.session != nil {
			c.session.UnbindIf(c.outbound)
			log.Printf("[Gateway] Player %s disconnected", c.session.UID())
		}
	}()

	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		c.touch()
		return nil
	})
	c.ws.SetPingHandler(func(appData string) error {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		c.touch()
		return c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))

		switch messageType {
		case websocket.TextMessage:
			if !c.handleText(message) {
				return
			}
		case websocket.BinaryMessage:
			c.handleBinary(message)
		}
	}
}

func (c *connection) touch() {
	if c.session != nil {
		c.session.Touch()
	}
}

// handleBinary accepts the single-byte keepalive; anything else is
// dropped without counting as liveness.
func (c *connection) handleBinary(message []byte) {
	if len(message) == 1 && message[0] == codec.KeepaliveByte {
		c.touch()
	}
}

// handleText runs the PreAuth/Authed state machine for one text frame.
// A false return closes the connection.
func (c *connection) handleText(data []byte) bool {
	in, err := codec.DecodeInbound(data)
	if err != nil {
		log.Printf("[Gateway] Invalid frame: %v", err)
		return true
	}

	if c.session == nil {
		// Pre-auth: any intent other than auth is rejected.
		if in.Auth == nil {
			c.send(codec.Error("Unauthorized"))
			return true
		}
		return c.handleAuth(in.Auth.Token)
	}

	c.session.Touch()
	if in.Auth != nil {
		// Re-auth on a live connection is a no-op.
		return true
	}

	switch in.Manage.Op {
	case codec.OpFindGame:
		if err := c.gw.manager.Join(c.session); err != nil {
			c.session.Send(codec.Error(err.Error()))
		}
	case codec.OpPlayCard:
		c.handlePlayCard(in.Manage)
	case codec.OpSub, codec.OpUnsub:
		// Reserved.
	default:
		log.Printf("[Gateway] Unknown op %q from %s", in.Manage.Op, c.session.UID())
	}
	return true
}

func (c *connection) handleAuth(token string) bool {
	uid, username, ok := c.gw.auth.ResolveToken(token)
	if !ok {
		c.send(codec.Error("Invalid token"))
		return false
	}

	session, rebound := c.gw.manager.BindSession(uid, username, c.outbound)
	c.session = session
	log.Printf("[Gateway] Player %s authenticated", uid)

	c.send(codec.SuccessLogin(username))
	if rebound {
		if room, pos, playing := c.gw.manager.RoomOf(uid); playing {
			room.Refresh(pos)
		}
	}
	return true
}

func (c *connection) handlePlayCard(m *codec.Manage) {
	played, err := m.Card()
	if err != nil {
		c.session.Send(codec.Error(err.Error()))
		return
	}

	room, pos, ok := c.gw.manager.RoomOf(c.session.UID())
	if !ok {
		c.session.Send(codec.Error("Not in a game"))
		return
	}

	matchOver, err := room.PlayCard(pos, played)
	if err != nil {
		c.session.Send(codec.Error(err.Error()))
		return
	}
	if matchOver {
		c.gw.manager.CloseRoom(room.ID, "Finished")
	}
}

// send enqueues directly on this connection's channel, for pre-auth
// traffic with no session yet.
func (c *connection) send(ev codec.Event) {
	select {
	case c.outbound <- ev:
	default:
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case ev := <-c.outbound:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[Gateway] Marshal error: %v", err)
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.flushOutbound()
			return
		}
	}
}

// flushOutbound writes whatever is still queued at teardown, so an
// error enqueued just before the read loop returned is not lost to the
// done/outbound select race.
func (c *connection) flushOutbound() {
	for {
		select {
		case ev := <-c.outbound:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if c.ws.WriteMessage(websocket.TextMessage, data) != nil {
				return
			}
		default:
			return
		}
	}
}
