// internal/server/registrations.go
package server

import (
	"encoding/json"
	"net/http"

	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

type registrationRequest struct {
	EventID      string               `json:"event_id"`
	Name         string               `json:"name,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// handleRegistrations records a visitor's interest in an event. The
// subscription is optional; without one the registrant simply gets no
// day-of reminder.
func (s *Server) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "event_id is required",
		})
		return
	}

	reg := models.EventRegistration{
		EventID:      req.EventID,
		Name:         req.Name,
		Subscription: req.Subscription,
	}
	if err := s.registrations.Save(r.Context(), reg); err != nil {
		s.logger.Error("failed to save registration", map[string]interface{}{
			"error":   err.Error(),
			"eventId": req.EventID,
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
