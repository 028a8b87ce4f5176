// internal/server/subscriptions.go
package server

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/FreakyLetsFail/NKalendar/internal/common/errors"
	"github.com/FreakyLetsFail/NKalendar/internal/common/validation"
	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// handleSubscriptions accepts the browser's push subscription descriptor
// (POST, upsert by endpoint) and explicit unsubscribes (DELETE).
func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.saveSubscription(w, r)
	case http.MethodDelete:
		s.removeSubscription(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) saveSubscription(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<10))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "unreadable body",
		})
		return
	}

	if err := validation.ValidateSubscription(body); err != nil {
		stdErr := apperrors.NewSubscriptionInvalidError(err.Error())
		s.logger.Warn("rejected subscription payload", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	var sub models.Subscription
	if err := json.Unmarshal(body, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}

	if err := s.subscriptions.Save(r.Context(), sub); err != nil {
		s.logger.Error("failed to save subscription", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) removeSubscription(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "endpoint is required",
		})
		return
	}

	if err := s.subscriptions.Remove(r.Context(), req.Endpoint); err != nil {
		s.logger.Error("failed to remove subscription", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
