package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/services"
)

type TaskManager interface {
	Create(ctx context.Context, user *models.User, in services.CreateTaskInput) (*models.TaskView, error)
	Update(ctx context.Context, user *models.User, rawID string, upd models.TaskUpdate) (*models.TaskView, error)
	BulkDelete(ctx context.Context, user *models.User, rawIDs []string) (int64, error)
	AddComment(ctx context.Context, user *models.User, rawID, content string) (*models.TaskView, error)
}

type TaskHandler struct {
	service TaskManager
}

func NewTaskHandler(service TaskManager) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTaskInput
	if err := decode(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "task": view})
}

// Update rejects fields outside the whitelist, including projectId.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.TaskUpdate
	if err := decode(w, r, &upd, true); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Update(r.Context(), currentUser(r), mux.Vars(r)["id"], upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "task": view})
}

type bulkDeleteRequest struct {
	TaskIDs []string `json:"taskIds"`
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.service.BulkDelete(r.Context(), currentUser(r), req.TaskIDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Tasks deleted")
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.AddComment(r.Context(), currentUser(r), mux.Vars(r)["id"], req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "task": view})
}
