package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/services"
)

type WorkspaceManager interface {
	List(ctx context.Context, user *models.User) ([]models.WorkspaceView, error)
	Create(ctx context.Context, user *models.User, in services.CreateWorkspaceInput) (*models.WorkspaceView, error)
	Update(ctx context.Context, user *models.User, rawID string, upd models.WorkspaceUpdate) (*models.WorkspaceView, error)
	Delete(ctx context.Context, user *models.User, rawID string) error
	Invite(ctx context.Context, inviter *models.User, rawID, email string, role models.Role) (*services.InviteResult, error)
}

type WorkspaceHandler struct {
	service WorkspaceManager
}

func NewWorkspaceHandler(service WorkspaceManager) *WorkspaceHandler {
	return &WorkspaceHandler{service: service}
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "workspaces": list})
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateWorkspaceInput
	if err := decode(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "workspace": view})
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.WorkspaceUpdate
	if err := decode(w, r, &upd, true); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.Update(r.Context(), currentUser(r), mux.Vars(r)["id"], upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "workspace": view})
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), currentUser(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Workspace deleted")
}

type inviteRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func (h *WorkspaceHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.service.Invite(r.Context(), currentUser(r), mux.Vars(r)["id"], req.Email, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": res.Message, "userAdded": res.UserAdded})
}
