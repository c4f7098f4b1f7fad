package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/homewatt/homewatt/api/middleware"
	"github.com/homewatt/homewatt/pkg/store"
)

type ingestRequest struct {
	DeviceID    uuid.UUID  `json:"device_id"`
	Timestamp   *time.Time `json:"timestamp"`
	EnergyWatts *float64   `json:"energy_usage"`
}

type ingestResponse struct {
	DeviceID    uuid.UUID `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	EnergyWatts float64   `json:"energy_usage"`
}

// handleIngest records one telemetry reading for an owned device. Ownership
// is checked before insert so a foreign device looks missing.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == uuid.Nil {
		s.httpError(w, http.StatusUnprocessableEntity, "device_id is required")
		return
	}
	if req.EnergyWatts == nil {
		s.httpError(w, http.StatusUnprocessableEntity, "energy_usage is required")
		return
	}
	if *req.EnergyWatts < 0 {
		s.httpError(w, http.StatusUnprocessableEntity, "energy_usage must not be negative")
		return
	}

	if _, err := s.store.GetDevice(r.Context(), req.DeviceID, owner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.httpError(w, http.StatusNotFound, deviceNotFound)
			return
		}
		s.log.Error("device lookup failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != nil {
		timestamp = req.Timestamp.UTC()
	}

	if err := s.store.InsertReading(r.Context(), req.DeviceID, timestamp, *req.EnergyWatts); err != nil {
		s.log.Error("reading insert failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, ingestResponse{
		DeviceID:    req.DeviceID,
		Timestamp:   timestamp,
		EnergyWatts: *req.EnergyWatts,
	})
}
