package subscriber

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/realtime"
)

// Board is a local copy of the tasks in the current workspace, kept up to
// date from push events. Merging is keyed by task id, so seeing the same
// change twice (once from a REST response and once from the room) is harmless.
type Board struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]models.TaskView
}

func NewBoard(initial []models.TaskView) *Board {
	b := &Board{tasks: make(map[primitive.ObjectID]models.TaskView, len(initial))}
	for _, t := range initial {
		b.tasks[t.ID] = t
	}
	return b
}

// Upsert stores t, replacing any task with the same id.
func (b *Board) Upsert(t models.TaskView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[t.ID] = t
}

// Remove drops the listed ids; unknown ids are ignored.
func (b *Board) Remove(ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, raw := range ids {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			delete(b.tasks, id)
		}
	}
}

// Apply merges one event. Kinds other than task events are ignored.
func (b *Board) Apply(kind realtime.EventKind, data json.RawMessage) error {
	switch kind {
	case realtime.TaskCreated, realtime.TaskUpdated:
		var t models.TaskView
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to decode %s: %w", kind, err)
		}
		b.Upsert(t)
	case realtime.TaskDeleted:
		var p realtime.TaskDeletedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", kind, err)
		}
		b.Remove(p.TaskIDs)
	}
	return nil
}

func (b *Board) Get(id primitive.ObjectID) (models.TaskView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	return t, ok
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// Tasks returns a snapshot ordered by creation time.
func (b *Board) Tasks() []models.TaskView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.TaskView, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

// Attach feeds the subscriber's task events into the board. The returned
// function removes the handlers again.
func (b *Board) Attach(s *Subscriber) (detach func()) {
	kinds := []realtime.EventKind{realtime.TaskCreated, realtime.TaskUpdated, realtime.TaskDeleted}
	ids := make([]HandlerID, 0, len(kinds))
	for _, kind := range kinds {
		kind := kind
		ids = append(ids, s.On(kind, func(data json.RawMessage) {
			if err := b.Apply(kind, data); err != nil {
				logging.Logger.Warnf("Event ID: BOARD_MERGE_FAILED, Description: %v", err)
			}
		}))
	}
	return func() {
		for _, id := range ids {
			s.Off(id)
		}
	}
}
