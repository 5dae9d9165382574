package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/middleware"
	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/services"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Warnf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": status < 400, "message": message})
}

// writeError maps a service error to its status. Unexpected errors are
// logged and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch {
		case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
			writeMessage(w, http.StatusBadRequest, svcErr.Message)
			return
		case errors.Is(err, services.ErrUnauthorized):
			writeMessage(w, http.StatusUnauthorized, svcErr.Message)
			return
		case errors.Is(err, services.ErrForbidden):
			writeMessage(w, http.StatusForbidden, svcErr.Message)
			return
		case errors.Is(err, services.ErrNotFound):
			writeMessage(w, http.StatusNotFound, svcErr.Message)
			return
		case errors.Is(err, services.ErrDelivery):
			writeMessage(w, http.StatusInternalServerError, svcErr.Message)
			return
		}
	}
	logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
	writeMessage(w, http.StatusInternalServerError, "Server error")
}

// decode reads a JSON body into v. Strict decoding rejects fields v does not
// declare, which is how update whitelists are enforced.
func decode(w http.ResponseWriter, r *http.Request, v interface{}, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &services.Error{Kind: services.ErrValidation, Message: "Request body is required"}
		}
		return &services.Error{Kind: services.ErrValidation, Message: fmt.Sprintf("Invalid request body: %v", err)}
	}
	return nil
}

// currentUser is only called behind middleware.RequireUser.
func currentUser(r *http.Request) *models.User {
	u, _ := middleware.GetUser(r.Context())
	return u
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "OK", "message": "Server is running"})
}
