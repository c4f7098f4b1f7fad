package handlers

import (
	"net/http"
	"strings"

	"github.com/homewatt/homewatt/api/middleware"
	"github.com/homewatt/homewatt/pkg/engine"
)

type queryRequest struct {
	Question string `json:"question"`
}

// handleQuery answers a free-text question about the caller's devices.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.httpError(w, http.StatusUnprocessableEntity, "question is required")
		return
	}

	devices, err := s.ownedDevices(r.Context(), userID)
	if err != nil {
		s.log.Error("device inventory failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	answer := s.engine.Answer(r.Context(), req.Question, engine.User{
		ID:      userID,
		Devices: devices,
	})
	s.writeJSON(w, http.StatusOK, answer)
}
