package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func fakeClient(h *Hub, id string, buffer int) *Client {
	c := &Client{id: id, identity: "user-" + id, hub: h, send: make(chan []byte, buffer)}
	h.Register(c)
	return c
}

func drain(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			if err := json.Unmarshal(frame, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestHub_PublishReachesExactlyRoomMembers(t *testing.T) {
	h := NewHub(nil)
	ctx := context.Background()

	rooms := []string{"w1", "w2", "w3"}
	clients := make([]*Client, 9)
	joined := map[string]map[string]bool{}
	for i := range clients {
		clients[i] = fakeClient(h, fmt.Sprintf("c%d", i), 8)
		room := rooms[i%len(rooms)]
		if i == 8 {
			continue // connected but never joins
		}
		if err := h.Join(ctx, clients[i].id, room); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		if joined[room] == nil {
			joined[room] = map[string]bool{}
		}
		joined[room][clients[i].id] = true
	}
	// c0 also follows w2; a client may sit in several rooms
	if err := h.Join(ctx, "c0", "w2"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	joined["w2"]["c0"] = true

	for _, room := range rooms {
		t.Run(room, func(t *testing.T) {
			for _, c := range clients {
				drain(c)
			}
			n := h.Publish(room, TaskCreated, map[string]string{"title": "t"})
			if n != len(joined[room]) {
				t.Errorf("expected %d deliveries, got %d", len(joined[room]), n)
			}
			for _, c := range clients {
				got := drain(c)
				want := joined[room][c.id]
				if want && (len(got) != 1 || got[0].Event != TaskCreated) {
					t.Errorf("client %s should have received one task-created, got %v", c.id, got)
				}
				if !want && len(got) != 0 {
					t.Errorf("client %s is not in %s but received %v", c.id, room, got)
				}
			}
		})
	}
}

func TestHub_PublishToEmptyRoom(t *testing.T) {
	h := NewHub(nil)
	if n := h.Publish("nobody-here", TaskDeleted, TaskDeletedPayload{TaskIDs: []string{"t1"}}); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
}

func TestHub_LeaveAndUnregister(t *testing.T) {
	h := NewHub(nil)
	ctx := context.Background()
	c := fakeClient(h, "c1", 8)

	h.Leave("c1", "w1") // not joined: no-op
	if err := h.Join(ctx, "c1", "w1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if h.RoomSize("w1") != 1 {
		t.Fatalf("expected room size 1, got %d", h.RoomSize("w1"))
	}

	h.Leave("c1", "w1")
	if h.RoomSize("w1") != 0 {
		t.Errorf("expected empty room after leave, got %d", h.RoomSize("w1"))
	}

	_ = h.Join(ctx, "c1", "w1")
	h.Unregister(c)
	h.Unregister(c)
	if h.RoomSize("w1") != 0 {
		t.Errorf("expected empty room after unregister, got %d", h.RoomSize("w1"))
	}
	if _, ok := <-c.send; ok {
		t.Error("expected send queue to be closed")
	}
	if err := h.Join(ctx, "c1", "w1"); !errors.Is(err, ErrUnknownClient) {
		t.Errorf("expected ErrUnknownClient, got: %v", err)
	}
}

func TestHub_Guard(t *testing.T) {
	denied := errors.New("not a member")
	h := NewHub(func(_ context.Context, identity, workspaceID string) error {
		if identity == "user-c1" && workspaceID == "w1" {
			return nil
		}
		return denied
	})
	fakeClient(h, "c1", 8)
	fakeClient(h, "c2", 8)

	if err := h.Join(context.Background(), "c1", "w1"); err != nil {
		t.Errorf("expected c1 to join, got: %v", err)
	}
	if err := h.Join(context.Background(), "c2", "w1"); !errors.Is(err, denied) {
		t.Errorf("expected guard rejection, got: %v", err)
	}
	if h.RoomSize("w1") != 1 {
		t.Errorf("expected room size 1, got %d", h.RoomSize("w1"))
	}
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	h := NewHub(nil)
	c := fakeClient(h, "c1", 16)
	_ = h.Join(context.Background(), "c1", "w1")

	for i := 0; i < 10; i++ {
		h.Publish("w1", TaskUpdated, map[string]int{"seq": i})
	}

	for i, env := range drain(c) {
		var body map[string]int
		if err := json.Unmarshal(env.Data, &body); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if body["seq"] != i {
			t.Fatalf("expected seq %d, got %d", i, body["seq"])
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub(nil)
	fakeClient(h, "slow", 1)
	fast := fakeClient(h, "fast", 8)
	_ = h.Join(context.Background(), "slow", "w1")
	_ = h.Join(context.Background(), "fast", "w1")

	h.Publish("w1", TaskUpdated, "first")
	n := h.Publish("w1", TaskUpdated, "second")

	if n != 1 {
		t.Errorf("expected only the fast client to receive the second event, got %d", n)
	}
	if h.RoomSize("w1") != 1 {
		t.Errorf("expected slow client to be removed, room size %d", h.RoomSize("w1"))
	}
	if len(drain(fast)) != 2 {
		t.Error("fast client should have both events")
	}
}
