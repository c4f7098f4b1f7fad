// Package handlers implements the HTTP surface of the homewatt API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/homewatt/homewatt/pkg/engine"
	"github.com/homewatt/homewatt/pkg/store"
)

// deviceCacheTTL bounds how stale the per-user device inventory handed to
// the engine may be.
const deviceCacheTTL = 30 * time.Second

// Store is the persistence surface the handlers need.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)

	ListDevicesByOwner(ctx context.Context, owner uuid.UUID) ([]store.Device, error)
	CreateDevice(ctx context.Context, name, deviceType string, owner uuid.UUID) (*store.Device, error)
	GetDevice(ctx context.Context, id, owner uuid.UUID) (*store.Device, error)
	DeleteDevice(ctx context.Context, id, owner uuid.UUID) error
	DeviceStats(ctx context.Context, deviceID, owner uuid.UUID, days int) (*store.Stats, error)

	InsertReading(ctx context.Context, deviceID uuid.UUID, timestamp time.Time, energyWatts float64) error
}

// Answerer is the conversational engine as the query handler sees it.
type Answerer interface {
	Answer(ctx context.Context, question string, user engine.User) *engine.Answer
}

// TokenIssuer issues access tokens at login.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	log     *slog.Logger
	store   Store
	engine  Answerer
	tokens  TokenIssuer
	devices *ttlcache.Cache[uuid.UUID, []engine.Device]
}

// New builds a Server. The device-inventory cache starts its eviction loop
// immediately; Stop releases it.
func New(log *slog.Logger, st Store, eng Answerer, tokens TokenIssuer) *Server {
	cache := ttlcache.New[uuid.UUID, []engine.Device](
		ttlcache.WithTTL[uuid.UUID, []engine.Device](deviceCacheTTL),
	)
	go cache.Start()

	return &Server{
		log:     log,
		store:   st,
		engine:  eng,
		tokens:  tokens,
		devices: cache,
	}
}

// Stop shuts down background workers.
func (s *Server) Stop() {
	s.devices.Stop()
}

// ownedDevices returns the caller's device inventory in the engine's shape,
// served from the cache when fresh.
func (s *Server) ownedDevices(ctx context.Context, owner uuid.UUID) ([]engine.Device, error) {
	if item := s.devices.Get(owner); item != nil {
		return item.Value(), nil
	}

	stored, err := s.store.ListDevicesByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	devices := make([]engine.Device, len(stored))
	for i, d := range stored {
		devices[i] = engine.Device{ID: d.ID, Name: d.Name}
	}
	s.devices.Set(owner, devices, ttlcache.DefaultTTL)
	return devices, nil
}

// invalidateDevices drops the cached inventory after a device mutation.
func (s *Server) invalidateDevices(owner uuid.UUID) {
	s.devices.Delete(owner)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encoding failed", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) httpError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}
