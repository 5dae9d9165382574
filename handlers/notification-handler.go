package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/steve-kings/project-management-system/models"
)

type NotificationFeed interface {
	List(ctx context.Context, user *models.User) ([]models.Notification, error)
	MarkRead(ctx context.Context, user *models.User, rawID string, createdAt time.Time) error
}

type NotificationHandler struct {
	service NotificationFeed
}

func NewNotificationHandler(service NotificationFeed) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "notifications": list})
}

type markReadRequest struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decode(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), currentUser(r), req.ID, req.CreatedAt); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}
