package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"suspect/internal/domain"
)

const qrSize = 256

// ErrorResponse is returned by every endpoint on failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateMatchResponse is the response for match creation
type CreateMatchResponse struct {
	MatchCode  string `json:"match_code"`
	InviteLink string `json:"invite_link"`
}

// JoinMatchRequest is the body of POST /match/join
type JoinMatchRequest struct {
	Name      string `json:"name"`
	MatchCode string `json:"match_code"`
}

// JoinMatchResponse is the response for joining a match
type JoinMatchResponse struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Host     bool   `json:"host"`
}

// StartMatchRequest is the body of POST /match/start
type StartMatchRequest struct {
	MatchCode string `json:"match_code"`
}

// StartMatchResponse is the response for starting a match
type StartMatchResponse struct {
	Success bool         `json:"success"`
	Phase   domain.Phase `json:"phase"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveMatches   int `json:"active_matches"`
	TotalPlayers    int `json:"total_players"`
	LiveConnections int `json:"live_connections"`
}

// handleCreateMatch handles POST /match/create
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	session, err := s.hub.CreateMatch()
	if err != nil {
		s.logger.Error("failed to create match", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to create match")
		return
	}

	s.sendJSON(w, http.StatusOK, &CreateMatchResponse{
		MatchCode:  session.GetMatchCode(),
		InviteLink: s.inviteLink(session.GetMatchCode()),
	})
}

// handleJoinMatch handles POST /match/join
func (s *Server) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	var req JoinMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.MatchCode == "" {
		s.sendError(w, http.StatusBadRequest, "name and match_code are required")
		return
	}

	player, err := s.hub.JoinMatch(strings.ToUpper(req.MatchCode), name)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, &JoinMatchResponse{
		PlayerID: player.ID,
		Name:     player.Name,
		Host:     player.Host,
	})
}

// handleStartMatch handles POST /match/start
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	var req StartMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	phase, err := s.hub.StartMatch(strings.ToUpper(req.MatchCode))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, &StartMatchResponse{
		Success: true,
		Phase:   phase,
	})
}

// handleMatchState handles GET /match/{code}
func (s *Server) handleMatchState(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])

	info, err := s.hub.Snapshot(code)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, info)
}

// handleMatchQR handles GET /match/{code}/qr with a PNG of the invite link
func (s *Server) handleMatchQR(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])

	if _, err := s.hub.GetSession(code); err != nil {
		s.sendDomainError(w, err)
		return
	}

	png, err := qrcode.Encode(s.inviteLink(code), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("failed to encode qr code", "matchCode", code, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to encode QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// handleHealth handles GET /
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, &StatsResponse{
		ActiveMatches:   s.hub.GetSessionCount(),
		TotalPlayers:    s.hub.GetTotalPlayerCount(),
		LiveConnections: s.hub.Connections().Count(),
	})
}

func (s *Server) inviteLink(code string) string {
	return strings.TrimRight(s.config.Server.FrontendURL, "/") + "/join/" + code
}

// sendDomainError maps domain errors to status codes and messages
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMatchNotFound):
		s.sendError(w, http.StatusNotFound, "Match not found")
	case errors.Is(err, domain.ErrPlayerNotFound):
		s.sendError(w, http.StatusNotFound, "Player not found")
	case errors.Is(err, domain.ErrMatchFull):
		s.sendError(w, http.StatusConflict, "Match is full")
	case errors.Is(err, domain.ErrWrongPhase):
		s.sendError(w, http.StatusConflict, "Match has already started")
	case errors.Is(err, domain.ErrNotEnoughPlayers):
		s.sendError(w, http.StatusBadRequest,
			fmt.Sprintf("Need at least %d connected players to start", s.config.Game.MinPlayers))
	case errors.Is(err, domain.ErrNoProposition):
		s.sendError(w, http.StatusBadRequest, "Need at least one role proposition to start")
	default:
		s.logger.Error("unexpected error", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, &ErrorResponse{Error: message})
}
