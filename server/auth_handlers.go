package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/LyDawei/Rate-my-services/admins"
	"github.com/LyDawei/Rate-my-services/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func accountProjection(account *admins.Account) accountResponse {
	return accountResponse{
		ID:          account.ID,
		Username:    account.Username,
		DisplayName: account.DisplayName,
	}
}

// LoginHandler authenticates an admin and issues the session cookie. The
// failure message never distinguishes unknown user from wrong password;
// locked accounts get a distinct status plus an unlock estimate, which is
// the one deliberate piece of extra signal.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		account, session, err := s.auth.Login(r.Context(), req.Username, req.Password, requestOrigin(r))
		if err != nil {
			s.writeLoginFailure(w, req.Username, err)
			return
		}

		// The cookie value is the freshly generated identifier; whatever the
		// client held before login is overwritten, never promoted.
		s.setSessionCookie(w, session.ID)
		writeJSON(w, http.StatusOK, accountProjection(account))
	}
}

func (s *Server) writeLoginFailure(w http.ResponseWriter, username string, err error) {
	var locked *auth.LockedError
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "username and password are required")
	case errors.As(err, &locked):
		body := map[string]interface{}{"error": "account temporarily locked, try again later"}
		if locked.State.UnlocksAt != nil {
			body["unlocks_at"] = locked.State.UnlocksAt.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusTooManyRequests, body)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	default:
		s.logger.Error().Err(err).Str("username", username).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "something went wrong, try again")
	}
}

// LogoutHandler destroys the session and clears the cookie. Always succeeds;
// logging out without a session is fine.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionIDFromRequest(r)
		if err := s.auth.Logout(r.Context(), sessionID); err != nil {
			s.logger.Error().Err(err).Msg("logout failed to destroy session")
		}
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// MeHandler answers "who am I" for the validated session.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil {
			writeError(w, http.StatusUnauthorized, "authentication required, please log in again")
			return
		}

		account, err := s.auth.ResolveIdentity(r.Context(), session)
		if err != nil {
			s.writeSessionFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, accountProjection(account))
	}
}

// HealthzHandler reports liveness, including a store round-trip.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.db != nil {
			if err := s.db.PingContext(r.Context()); err != nil {
				writeError(w, http.StatusInternalServerError, "store unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
