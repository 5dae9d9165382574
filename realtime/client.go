package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/steve-kings/project-management-system/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one live websocket connection.
type Client struct {
	id       string
	identity string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, identity string) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// readPump handles join and leave requests until the connection fails.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Logger.WithField("client", c.id).Warnf("Event ID: WS_READ_FAILED, Description: %v", err)
			}
			return
		}
		c.handle(ctx, env)
	}
}

func (c *Client) handle(ctx context.Context, env Envelope) {
	if env.Event != JoinWorkspace && env.Event != LeaveWorkspace {
		logging.Logger.WithFields(logrus.Fields{"client": c.id, "event": string(env.Event)}).
			Debug("Event ID: WS_UNKNOWN_EVENT, Description: Ignoring unknown client event")
		return
	}

	var workspaceID string
	if err := json.Unmarshal(env.Data, &workspaceID); err != nil || workspaceID == "" {
		c.reply(ErrorEvent, ErrorPayload{Message: "workspace id must be a non-empty string"})
		return
	}

	if env.Event == LeaveWorkspace {
		c.hub.Leave(c.id, workspaceID)
		return
	}
	if err := c.hub.Join(ctx, c.id, workspaceID); err != nil {
		c.reply(ErrorEvent, ErrorPayload{Message: "Not allowed to join this workspace"})
	}
}

// reply queues a frame for this client only. The hub lock guards the send
// queue against a concurrent Unregister.
func (c *Client) reply(kind EventKind, payload interface{}) {
	frame, err := Encode(kind, payload)
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
