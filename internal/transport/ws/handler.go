package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"suspect/internal/app"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *app.MatchHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler. allowedOrigin restricts the
// upgrade to one browser origin; empty allows all.
func NewHandler(hub *app.MatchHub, allowedOrigin string, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades GET /ws/match/{code}?player_id=... for a rostered player
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.hub.GetSession(code)
	if err != nil {
		http.Error(w, "Match not found", http.StatusNotFound)
		return
	}

	if !session.HasPlayer(playerID) {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, session, playerID, h.logger)

	// The player may have been removed between the check and the upgrade
	if err := session.Attach(playerID, client); err != nil {
		h.logger.Debug("attach failed", "matchCode", code, "playerID", playerID, "error", err)
		client.Close()
		return
	}

	h.logger.Info("websocket connected",
		"matchCode", code,
		"playerID", playerID,
		"connID", client.ID(),
	)

	client.Run()
}
