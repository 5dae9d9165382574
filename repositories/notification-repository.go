package repositories

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/gocql/gocql"
	"github.com/sirupsen/logrus"

	"github.com/steve-kings/project-management-system/config"
	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/models"
)

var keyspaceName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NotificationRepo stores the per-user notification feed in Cassandra.
type NotificationRepo struct {
	session *gocql.Session
}

// NewNotificationRepo creates the keyspace if needed and connects to it.
func NewNotificationRepo(cfg config.CassandraConfig) (*NotificationRepo, error) {
	if !keyspaceName.MatchString(cfg.Keyspace) {
		return nil, fmt.Errorf("invalid cassandra keyspace %q", cfg.Keyspace)
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = "system"
	cluster.Timeout = 5 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASSANDRA_CONNECT_FAILED, Description: %v", err)
		return nil, err
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
		 WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': 1
		 }`, cfg.Keyspace)).Exec()
	session.Close()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASSANDRA_KEYSPACE_FAILED, Description: %v", err)
		return nil, err
	}

	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASSANDRA_CONNECT_FAILED, Description: keyspace %s: %v", cfg.Keyspace, err)
		return nil, err
	}

	logging.Logger.WithField("keyspace", cfg.Keyspace).Info("Event ID: CASSANDRA_CONNECTED, Description: Connected to notification keyspace")
	return &NotificationRepo{session: session}, nil
}

func (r *NotificationRepo) Close() {
	r.session.Close()
	logging.Logger.Info("Event ID: CASSANDRA_CLOSED, Description: Cassandra session closed")
}

func (r *NotificationRepo) CreateTable() error {
	err := r.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			user_id TEXT,
			created_at TIMESTAMP,
			id UUID,
			workspace_id TEXT,
			message TEXT,
			is_read BOOLEAN,
			PRIMARY KEY ((user_id), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == (gocql.UUID{}) {
		n.ID = gocql.TimeUUID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	// Cassandra timestamps carry millisecond precision.
	n.CreatedAt = n.CreatedAt.Truncate(time.Millisecond)

	err := r.session.Query(
		`INSERT INTO notifications (user_id, created_at, id, workspace_id, message, is_read)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, n.CreatedAt, n.ID, n.WorkspaceID, n.Message, n.IsRead,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	logging.Logger.WithFields(logrus.Fields{"user": n.UserID, "workspace": n.WorkspaceID}).
		Debug("Event ID: NOTIFICATION_STORED, Description: Notification stored")
	return nil
}

// ListByUser returns the user's feed, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	iter := r.session.Query(
		`SELECT id, user_id, workspace_id, message, created_at, is_read
		 FROM notifications WHERE user_id = ?`, userID,
	).WithContext(ctx).Iter()

	notifications := []models.Notification{}
	var n models.Notification
	for iter.Scan(&n.ID, &n.UserID, &n.WorkspaceID, &n.Message, &n.CreatedAt, &n.IsRead) {
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a single notification as read. Rows are addressed by their
// full primary key; a row that does not exist yields ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, id gocql.UUID, createdAt time.Time) error {
	applied, err := r.session.Query(
		`UPDATE notifications SET is_read = true
		 WHERE user_id = ? AND created_at = ? AND id = ? IF EXISTS`,
		userID, createdAt, id,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}
