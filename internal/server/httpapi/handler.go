package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"authd/internal/common"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyEmailRequest struct {
	Code string `json:"code" validate:"required,len=8,numeric"`
}

type resetPasswordRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}

	sessionID, err := s.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "user signed up", "email", req.Email)
	s.writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sessionID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	sessionID, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID})
}

// handleLogout is deliberately not session-guarded: logout always succeeds,
// even with a token that no longer resolves.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.Logout(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !s.decode(w, r, &req) {
		return
	}

	v := validationFromContext(r.Context())
	sessionID, err := s.auth.VerifyEmailCode(r.Context(), v.User, req.Code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "email verified", "email", v.User.Email)
	s.writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID})
}

func (s *Server) handleResetPasswordRequest(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequestRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.auth.ResetPasswordRequest(r.Context(), s.domain, req.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	sessionID, err := s.auth.ResetPassword(r.Context(), req.Password, req.Token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	v := validationFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, userResponse{
		ID:            v.User.ID,
		Email:         v.User.Email,
		EmailVerified: v.User.EmailVerified,
		CreatedAt:     v.User.CreatedAt,
	})
}

// decode unmarshals and validates the request body, answering 400 itself
// when either step fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps the sentinel error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrUserExists):
		s.writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, common.ErrEmailNotFound):
		s.writeError(w, http.StatusNotFound, "email not registered")
	case errors.Is(err, common.ErrInvalidCode):
		s.writeError(w, http.StatusBadRequest, "invalid code or token")
	case errors.Is(err, common.ErrCodeExpired):
		s.writeError(w, http.StatusBadRequest, "code expired")
	case errors.Is(err, common.ErrResetTokenExpired):
		s.writeError(w, http.StatusBadRequest, "reset token expired")
	case errors.Is(err, common.ErrInvalidSession):
		s.writeError(w, http.StatusUnauthorized, "invalid session")
	case errors.Is(err, common.ErrEmailSend):
		s.logger.Error(r.Context(), "email delivery failed", "error", err.Error())
		s.writeError(w, http.StatusBadGateway, "could not send email")
	default:
		s.logger.Error(r.Context(), "request failed", "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
