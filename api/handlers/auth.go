package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homewatt/homewatt/pkg/auth"
	"github.com/homewatt/homewatt/pkg/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleRegister creates an account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.httpError(w, http.StatusUnprocessableEntity, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		s.httpError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("password hashing failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		s.httpError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		s.log.Error("user creation failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, userResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// handleLogin exchanges credentials for a bearer token. Unknown emails and
// wrong passwords produce the same response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.invalidCredentials(w)
		return
	}
	if err != nil {
		s.log.Error("user lookup failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !user.IsActive || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.invalidCredentials(w)
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("token issuance failed", "error", err)
		s.httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) invalidCredentials(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	s.httpError(w, http.StatusUnauthorized, "Incorrect email or password")
}
