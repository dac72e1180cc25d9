package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"authd/internal/common"
	"authd/internal/server/session"
)

type ctxKey string

const validationKey ctxKey = "sessionValidation"

// refreshHeader carries the replacement session id when validation rotated
// the one the client presented.
const refreshHeader = "X-Session-Refresh"

// bearerToken extracts the session id from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// sessionAuth guards a route group behind a valid session. The resolved
// user and session land in the request context; a rotated session id is
// reported back through the refresh header.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing session")
			return
		}

		v, err := s.sessions.Validate(r.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrInvalidSession) {
				s.writeError(w, http.StatusUnauthorized, "invalid session")
				return
			}
			s.logger.Error(r.Context(), "session validation failed", "error", err.Error())
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if v.Fresh {
			w.Header().Set(refreshHeader, v.Session.ID)
		}

		ctx := context.WithValue(r.Context(), validationKey, v)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validationFromContext returns the session validation stored by
// sessionAuth.
func validationFromContext(ctx context.Context) *session.Validation {
	v, _ := ctx.Value(validationKey).(*session.Validation)
	return v
}
