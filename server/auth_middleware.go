package server

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/LyDawei/Rate-my-services/auth"
	"github.com/LyDawei/Rate-my-services/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the validated session for protected routes.
const ContextKeySession ContextKey = "session"

// RequireSession gates protected routes behind session validation. Which of
// the four ways a session can be dead (absent, structurally invalid,
// past its absolute age, idle too long) is logged server-side; a rejected
// client always gets the same generic answer so session state is not an
// oracle.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionIDFromRequest(r)
			session, err := s.auth.Validate(r.Context(), sessionID)
			if err != nil {
				s.writeSessionFailure(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeSessionFailure maps a session check error to a response. The four
// lifecycle sentinels mean the session is dead: clear the cookie and answer
// the one generic 401. Anything else is a store failure, not an
// authentication verdict; the client keeps its cookie and gets a 500.
func (s *Server) writeSessionFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrSessionInvalid),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrSessionIdle):
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("session rejected")
		s.clearSessionCookie(w)
		writeError(w, http.StatusUnauthorized, "authentication required, please log in again")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("session check failed")
		writeError(w, http.StatusInternalServerError, "something went wrong, try again")
	}
}

// SessionFromContext returns the session RequireSession stashed, or nil.
func SessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}
