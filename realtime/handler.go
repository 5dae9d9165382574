package realtime

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/steve-kings/project-management-system/logging"
)

// IdentifyFunc resolves the user behind an upgrade request; "" means anonymous.
type IdentifyFunc func(r *http.Request) string

// Handler upgrades HTTP requests to push-channel connections.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	identify IdentifyFunc
	ctx      context.Context
}

// NewHandler accepts upgrades from the listed origins and from clients that
// send no Origin header; allowAll accepts any origin, matching the REST CORS
// policy in development. ctx bounds guard lookups made for its connections.
func NewHandler(ctx context.Context, hub *Hub, allowedOrigins []string, allowAll bool, identify IdentifyFunc) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:      hub,
		identify: identify,
		ctx:      ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := ""
	if h.identify != nil {
		identity = h.identify(r)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Logger.Warnf("Event ID: WS_UPGRADE_FAILED, Description: %v", err)
		return
	}

	client := newClient(h.hub, conn, identity)
	h.hub.Register(client)
	logging.Logger.WithFields(logrus.Fields{"client": client.id, "remote": r.RemoteAddr}).
		Info("Event ID: WS_CONNECTED, Description: Push channel connection opened")

	go client.writePump()
	go client.readPump(h.ctx)
}
