package services

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/repositories"
)

type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, user *models.User) ([]models.Notification, error) {
	list, err := s.store.ListByUser(ctx, user.ID.Hex())
	if err != nil {
		return nil, fromStore(err, "Notification")
	}
	return list, nil
}

// MarkRead flags one of the caller's notifications as read. Notifications
// are addressed by id together with their creation time.
func (s *NotificationService) MarkRead(ctx context.Context, user *models.User, rawID string, createdAt time.Time) error {
	id, err := gocql.ParseUUID(rawID)
	if err != nil {
		return newError(ErrValidation, "Invalid notification id")
	}
	if createdAt.IsZero() {
		return newError(ErrValidation, "createdAt is required")
	}

	err = s.store.MarkRead(ctx, user.ID.Hex(), id, createdAt)
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "Notification not found")
	}
	if err != nil {
		return fromStore(err, "Notification")
	}
	return nil
}
