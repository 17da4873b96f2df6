package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/session"
)

const anonymousPlayer = "anonymous"

type submitRequest struct {
	SessionID string `json:"sessionId"`
	Word      string `json:"word"`
	PlayerID  string `json:"playerId"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Reason session.Rejection `json:"reason,omitempty"`
}

// RegisterRoutes mounts the game API and websocket endpoints on r.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/api/current-game", s.handleCurrentGame)
	r.Post("/api/submit-word", s.handleSubmitWord)
	r.Get("/ws/game", s.handleGameSocket)
	r.Get("/ws/stats", s.handleConnectionStats)
	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	log.Info().Msg("word search gateway routes registered")
}

func (s *Service) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Current())
}

func (s *Service) handleSubmitWord(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		playerID = anonymousPlayer
	}

	if !s.limiter.Allow(playerID) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
		return
	}

	res := s.game.Submit(req.SessionID, req.Word, playerID)
	if res.Reason.SessionLevel() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: res.Reason.Message(), Reason: res.Reason})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleGameSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = anonymousPlayer
	}

	conn, err := s.connections.UpgradeConnection(w, r, playerID)
	if err != nil {
		// The upgrader has already replied to the client.
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to upgrade WebSocket connection")
		return
	}

	if snap := s.game.Current(); snap != nil {
		s.sendCurrentGame(conn, snap)
	}
}

func (s *Service) handleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.connections.GetConnectionStats())
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "wordsearch_gateway",
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"connections": s.connections.GetConnectionStats(),
		"game":        s.game.Stats(),
		"players":     s.limiter.Size(),
	})
}

// handleClientMessage answers requests sent over a websocket.
func (s *Service) handleClientMessage(c *Connection, msg ClientMessage) {
	switch msg.Type {
	case ClientRequestCurrentGame:
		s.sendCurrentGame(c, s.game.Current())
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", string(msg.Type)).
			Msg("unknown client message type")
	}
}

func (s *Service) sendCurrentGame(c *Connection, snap *session.Snapshot) {
	evt, err := CurrentGameEvent(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to build current game event")
		return
	}
	if !s.connections.SendTo(c, evt) {
		log.Warn().Str("connection_id", c.ID).Msg("could not deliver current game")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
