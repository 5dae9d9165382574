package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Notification is a per-user feed entry kept in Cassandra.
type Notification struct {
	ID          gocql.UUID `json:"id"`
	UserID      string     `json:"userId"`
	WorkspaceID string     `json:"workspaceId"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"createdAt"`
	IsRead      bool       `json:"isRead"`
}
