package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes groups the handlers served under /api. Notifications may be nil
// when the feed is not configured.
type Routes struct {
	Auth          *AuthHandler
	Workspaces    *WorkspaceHandler
	Projects      *ProjectHandler
	Tasks         *TaskHandler
	Notifications *NotificationHandler
}

// Register mounts the API on router. requireUser guards every route except
// health and sign-in.
func (rt Routes) Register(router *mux.Router, requireUser mux.MiddlewareFunc) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", Health).Methods(http.MethodGet)
	api.HandleFunc("/auth/google/verify", rt.Auth.VerifyGoogle).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(requireUser)

	protected.HandleFunc("/auth/me", rt.Auth.Me).Methods(http.MethodGet)
	protected.HandleFunc("/auth/logout", rt.Auth.Logout).Methods(http.MethodPost)

	protected.HandleFunc("/workspaces", rt.Workspaces.List).Methods(http.MethodGet)
	protected.HandleFunc("/workspaces", rt.Workspaces.Create).Methods(http.MethodPost)
	protected.HandleFunc("/workspaces/{id}", rt.Workspaces.Update).Methods(http.MethodPut)
	protected.HandleFunc("/workspaces/{id}", rt.Workspaces.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/workspaces/{id}/invite", rt.Workspaces.Invite).Methods(http.MethodPost)

	protected.HandleFunc("/projects", rt.Projects.Create).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{id}", rt.Projects.Update).Methods(http.MethodPut)
	protected.HandleFunc("/projects/{id}", rt.Projects.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/tasks", rt.Tasks.Create).Methods(http.MethodPost)
	protected.HandleFunc("/tasks", rt.Tasks.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/tasks/{id}", rt.Tasks.Update).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{id}/comments", rt.Tasks.AddComment).Methods(http.MethodPost)

	if rt.Notifications != nil {
		protected.HandleFunc("/notifications", rt.Notifications.List).Methods(http.MethodGet)
		protected.HandleFunc("/notifications/read", rt.Notifications.MarkRead).Methods(http.MethodPut)
	}
}
