package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/homewatt/homewatt/api/middleware"
	"github.com/homewatt/homewatt/pkg/store"
)

const deviceNotFound = "Device not found or you do not have permission to access it."

type createDeviceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// handleListDevices returns the caller's devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())

	devices, err := s.store.ListDevicesByOwner(r.Context(), owner)
	if err != nil {
		s.log.Error("device listing failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if devices == nil {
		devices = []store.Device{}
	}
	s.writeJSON(w, http.StatusOK, devices)
}

// handleCreateDevice registers a device for the caller.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())

	var req createDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.httpError(w, http.StatusUnprocessableEntity, "device name is required")
		return
	}

	device, err := s.store.CreateDevice(r.Context(), req.Name, req.Type, owner)
	if err != nil {
		s.log.Error("device creation failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.invalidateDevices(owner)
	s.writeJSON(w, http.StatusCreated, device)
}

// handleGetDevice fetches one owned device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		s.httpError(w, http.StatusNotFound, deviceNotFound)
		return
	}

	device, err := s.store.GetDevice(r.Context(), id, owner)
	if errors.Is(err, store.ErrNotFound) {
		s.httpError(w, http.StatusNotFound, deviceNotFound)
		return
	}
	if err != nil {
		s.log.Error("device lookup failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, device)
}

// handleDeleteDevice removes an owned device and its readings.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		s.httpError(w, http.StatusNotFound, deviceNotFound)
		return
	}

	if err := s.store.DeleteDevice(r.Context(), id, owner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.httpError(w, http.StatusNotFound, deviceNotFound)
			return
		}
		s.log.Error("device deletion failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.invalidateDevices(owner)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns min/max/avg usage for an owned device over a
// trailing window of days (default 7).
func (s *Server) handleDeviceStats(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		s.httpError(w, http.StatusNotFound, deviceNotFound)
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 {
			s.httpError(w, http.StatusUnprocessableEntity, "days must be a positive integer")
			return
		}
	}

	stats, err := s.store.DeviceStats(r.Context(), id, owner, days)
	if errors.Is(err, store.ErrNotFound) {
		s.httpError(w, http.StatusNotFound, deviceNotFound)
		return
	}
	if err != nil {
		s.log.Error("device stats failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
