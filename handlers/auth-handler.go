package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/steve-kings/project-management-system/middleware"
	"github.com/steve-kings/project-management-system/models"
)

type SignInService interface {
	SignInWithGoogle(ctx context.Context, credential string) (*models.User, string, error)
}

type AuthHandler struct {
	service SignInService
	ttl     time.Duration
	secure  bool
}

// NewAuthHandler issues session cookies living ttl; secure marks them
// HTTPS-only.
func NewAuthHandler(service SignInService, ttl time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{service: service, ttl: ttl, secure: secure}
}

type verifyRequest struct {
	Credential string `json:"credential"`
}

func (h *AuthHandler) VerifyGoogle(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	user, token, err := h.service.SignInWithGoogle(r.Context(), req.Credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.ttl.Seconds()),
	})
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": user.Summary()})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": currentUser(r)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
