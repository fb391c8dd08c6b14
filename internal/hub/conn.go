package hub

import (
	"context"
	"encoding/json"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"go.uber.org/zap"

	"github.com/kasupel/server/internal/core"
)

// wireEvent is the minimal JSON envelope every server-to-client socket
// message uses: {"event": "...", "data": {...}}. Spec §6 leaves the
// exact Socket.IO packet framing out of scope (it names the transport
// as an external collaborator); this envelope is the part the hub
// itself is responsible for: which event, and what payload.
type wireEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn wraps one websocket connection for one (game, user). A dedicated
// writer goroutine drains Conn's outbound channel — nhooyr's Conn is
// not safe for concurrent writers, and spec §9 calls for exactly "one
// outbound-event channel per socket" regardless.
type Conn struct {
	ws     *websocket.Conn
	userID int64
	side   core.Side

	out  chan wireEvent
	log  *zap.Logger
	done chan struct{}
}

func newConn(ws *websocket.Conn, userID int64, side core.Side, log *zap.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		userID: userID,
		side:   side,
		out:    make(chan wireEvent, 32),
		log:    log,
		done:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) writeLoop() {
	defer close(c.done)
	for ev := range c.out {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := wsjson.Write(ctx, c.ws, ev)
		cancel()
		if err != nil {
			c.log.Debug("socket write failed", zap.Int64("user_id", c.userID), zap.Error(err))
			return
		}
	}
}

// send enqueues ev without blocking the hub's command loop on a slow
// client; a full buffer means the client is badly behind and the send
// is dropped rather than stalling the whole game (partial fan-out
// failures never roll back state, per spec §7).
func (c *Conn) send(event string, data interface{}) {
	select {
	case c.out <- wireEvent{Event: event, Data: data}:
	default:
		c.log.Warn("dropping socket event, outbound buffer full", zap.Int64("user_id", c.userID), zap.String("event", event))
	}
}

// disconnect sends a final game_disconnect event, then closes the
// connection once the writer has drained it.
func (c *Conn) disconnect(reason string) {
	c.send("game_disconnect", map[string]string{"reason": reason})
	close(c.out)
	<-c.done
	c.ws.Close(websocket.StatusNormalClosure, "")
}

// readCommand blocks for the next client event on this socket.
func (c *Conn) readCommand(ctx context.Context) (event string, raw json.RawMessage, err error) {
	var envelope wireEvent
	var rawData json.RawMessage
	envelope.Data = &rawData
	if err := wsjson.Read(ctx, c.ws, &envelope); err != nil {
		return "", nil, err
	}
	return envelope.Event, rawData, nil
}
