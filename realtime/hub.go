package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/steve-kings/project-management-system/logging"
)

var ErrUnknownClient = errors.New("unknown client")

// JoinGuard decides whether the identity behind a connection may join a
// workspace room. A nil guard lets any connected client join any room.
type JoinGuard func(ctx context.Context, identity, workspaceID string) error

// Hub is the process-wide set of live connections grouped into one room per
// workspace. Room membership is independent of workspace membership unless a
// JoinGuard is installed.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	guard   JoinGuard
}

func NewHub(guard JoinGuard) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		guard:   guard,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	logging.Logger.WithField("client", c.id).Debug("Event ID: WS_CLIENT_REGISTERED, Description: Client connected")
}

// Unregister removes the client from every room and closes its send queue.
// Calling it more than once is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for room, members := range h.rooms {
		if _, ok := members[c.id]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
	logging.Logger.WithField("client", c.id).Debug("Event ID: WS_CLIENT_UNREGISTERED, Description: Client disconnected")
}

// Join adds the client to the room of workspaceID.
func (h *Hub) Join(ctx context.Context, clientID, workspaceID string) error {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	h.mu.Unlock()
	if !ok {
		return ErrUnknownClient
	}

	if h.guard != nil {
		if err := h.guard(ctx, c.identity, workspaceID); err != nil {
			logging.Logger.WithFields(logrus.Fields{"client": clientID, "workspace": workspaceID}).
				Warnf("Event ID: WS_JOIN_REJECTED, Description: %v", err)
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// the client may have gone away while the guard ran
	if _, ok := h.clients[clientID]; !ok {
		return ErrUnknownClient
	}
	members, ok := h.rooms[workspaceID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[workspaceID] = members
	}
	members[clientID] = c
	logging.Logger.WithFields(logrus.Fields{"client": clientID, "workspace": workspaceID}).
		Debug("Event ID: WS_ROOM_JOINED, Description: Client joined workspace room")
	return nil
}

// Leave removes the client from the room; it is a no-op when absent.
func (h *Hub) Leave(clientID, workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[workspaceID]
	if !ok {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, workspaceID)
	}
}

// Publish queues the event for every client currently in the room and returns
// how many received it. Frames are queued under the hub lock, so every member
// of a room sees that room's events in publish order. A client whose queue is
// full is disconnected rather than allowed to stall the room.
func (h *Hub) Publish(workspaceID string, kind EventKind, payload interface{}) int {
	frame, err := Encode(kind, payload)
	if err != nil {
		logging.Logger.Errorf("Event ID: WS_PUBLISH_ENCODE_FAILED, Description: %v", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, c := range h.rooms[workspaceID] {
		select {
		case c.send <- frame:
			delivered++
		default:
			logging.Logger.WithField("client", c.id).
				Warn("Event ID: WS_CLIENT_SLOW, Description: Send queue full, dropping client")
			h.removeLocked(c)
		}
	}

	logging.Logger.WithFields(logrus.Fields{"workspace": workspaceID, "event": string(kind), "delivered": delivered}).
		Debug("Event ID: WS_EVENT_PUBLISHED, Description: Event published to workspace room")
	return delivered
}

// RoomSize returns the number of clients joined to the room.
func (h *Hub) RoomSize(workspaceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[workspaceID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.removeLocked(c)
	}
}
