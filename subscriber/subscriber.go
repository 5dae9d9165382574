package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/realtime"
)

var ErrNotConnected = errors.New("subscriber is not connected")

const writeWait = 10 * time.Second

// HandlerID identifies a registered callback so it can be removed with Off.
type HandlerID uint64

// Handler receives the raw data of one event.
type Handler func(data json.RawMessage)

// Subscriber is a push-channel client that follows one workspace room at a
// time. It does not rejoin its room after a reconnect.
type Subscriber struct {
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	done     chan struct{}
	current  string
	handlers map[realtime.EventKind]map[HandlerID]Handler
	nextID   HandlerID

	writeMu sync.Mutex
}

// New returns a disconnected subscriber. A nil dialer uses websocket.DefaultDialer.
func New(dialer *websocket.Dialer) *Subscriber {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Subscriber{
		dialer:   dialer,
		handlers: make(map[realtime.EventKind]map[HandlerID]Handler),
	}
}

// Connect dials url, sending header with the handshake (for example the
// session cookie). Calling Connect on a connected subscriber does nothing.
func (s *Subscriber) Connect(ctx context.Context, url string, header http.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}

	conn, _, err := s.dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	s.conn = conn
	s.done = make(chan struct{})
	go s.readLoop(conn, s.done)

	logging.Logger.Infof("Event ID: SUBSCRIBER_CONNECTED, Description: Connected to %s", url)
	return nil
}

// Disconnect closes the connection and forgets the current room. Registered
// handlers are kept.
func (s *Subscriber) Disconnect() {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.mu.Unlock()
	if conn == nil {
		return
	}

	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.writeMu.Unlock()
	conn.Close()
	<-done
}

// Connected reports whether a connection is open.
func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Current is the workspace room last joined, or "" when none.
func (s *Subscriber) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// JoinWorkspace switches rooms: it leaves the current room, if any, and then
// joins workspaceID. Events published between the two frames can be missed.
func (s *Subscriber) JoinWorkspace(workspaceID string) error {
	if workspaceID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	if s.current != "" {
		if err := s.send(realtime.LeaveWorkspace, s.current); err != nil {
			return err
		}
	}
	if err := s.send(realtime.JoinWorkspace, workspaceID); err != nil {
		return err
	}
	s.current = workspaceID
	return nil
}

// LeaveWorkspace leaves workspaceID; the current room is cleared only when
// it matches.
func (s *Subscriber) LeaveWorkspace(workspaceID string) error {
	if workspaceID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	if err := s.send(realtime.LeaveWorkspace, workspaceID); err != nil {
		return err
	}
	if s.current == workspaceID {
		s.current = ""
	}
	return nil
}

// On registers h for kind. Every On must be paired with an Off by the
// caller, or h keeps firing.
func (s *Subscriber) On(kind realtime.EventKind, h Handler) HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.handlers[kind] == nil {
		s.handlers[kind] = make(map[HandlerID]Handler)
	}
	s.handlers[kind][s.nextID] = h
	return s.nextID
}

// Off removes a handler. Unknown ids are ignored.
func (s *Subscriber) Off(id HandlerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, hs := range s.handlers {
		delete(hs, id)
	}
}

// send writes one frame. Callers hold s.mu.
func (s *Subscriber) send(kind realtime.EventKind, workspaceID string) error {
	frame, err := realtime.Encode(kind, workspaceID)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", kind, err)
	}
	return nil
}

func (s *Subscriber) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.current = ""
		}
		s.mu.Unlock()
		conn.Close()
		close(done)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Logger.Warnf("Event ID: SUBSCRIBER_DISCONNECTED, Description: %v", err)
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			logging.Logger.Warnf("Event ID: SUBSCRIBER_BAD_FRAME, Description: %v", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *Subscriber) dispatch(env realtime.Envelope) {
	s.mu.Lock()
	hs := make([]Handler, 0, len(s.handlers[env.Event]))
	for _, h := range s.handlers[env.Event] {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	for _, h := range hs {
		h(env.Data)
	}
}
