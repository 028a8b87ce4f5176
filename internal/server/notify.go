// internal/server/notify.go
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

type runResponse struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Error   string `json:"error,omitempty"`
}

// handleNotifyRun is the trigger endpoint an external scheduler calls
// once a minute. Zero due records is a normal completion, not an error.
func (s *Server) handleNotifyRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sent, err := s.scanner.Run(r.Context())
	if err != nil {
		s.logger.Error("scan pass failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{Success: true, Sent: sent})
}

type customPushRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// handleNotifyCustom broadcasts an operator-supplied message to the
// whole global pool. Guarded by a static bearer token; the dashboard
// session auth lives in the CRUD collaborator, not here.
func (s *Server) handleNotifyCustom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "unauthorized",
		})
		return
	}

	var req customPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}
	if req.Title == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "title and message are required",
		})
		return
	}

	subs, err := s.pool.All(r.Context())
	if err != nil {
		s.logger.Error("failed to load subscription pool", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	payload := models.PushPayload{Title: req.Title, Body: req.Message}
	sent := 0
	for _, sub := range subs {
		if err := s.broadcaster.Dispatch(r.Context(), sub, payload); err == nil {
			sent++
		}
	}

	writeJSON(w, http.StatusOK, runResponse{Success: true, Sent: sent})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.config.AdminToken == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && token == s.config.AdminToken
}
