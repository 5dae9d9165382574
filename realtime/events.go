package realtime

import (
	"encoding/json"
	"fmt"
)

// EventKind names a frame on the push channel.
type EventKind string

const (
	TaskCreated EventKind = "task-created"
	TaskUpdated EventKind = "task-updated"
	TaskDeleted EventKind = "task-deleted"

	JoinWorkspace  EventKind = "join-workspace"
	LeaveWorkspace EventKind = "leave-workspace"

	// ErrorEvent reports a rejected client request, such as a refused join.
	ErrorEvent EventKind = "error"
)

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type TaskDeletedPayload struct {
	TaskIDs []string `json:"taskIds"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode builds a frame for kind carrying payload.
func Encode(kind EventKind, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Event: kind, Data: data})
}
