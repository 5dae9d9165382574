package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/services"
)

type ProjectManager interface {
	Create(ctx context.Context, user *models.User, in services.CreateProjectInput) (*models.ProjectView, error)
	Update(ctx context.Context, user *models.User, rawID string, upd models.ProjectUpdate) (*models.ProjectView, error)
	Delete(ctx context.Context, user *models.User, rawID string) error
}

type ProjectHandler struct {
	service ProjectManager
}

func NewProjectHandler(service ProjectManager) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateProjectInput
	if err := decode(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "project": view})
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.ProjectUpdate
	if err := decode(w, r, &upd, true); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Update(r.Context(), currentUser(r), mux.Vars(r)["id"], upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "project": view})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), currentUser(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Project deleted")
}
