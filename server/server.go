// Package server is the HTTP surface of the admin auth core: login, logout,
// identity, the session gate for protected routes, and the maintenance jobs.
package server

import (
	"database/sql"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/LyDawei/Rate-my-services/admins"
	"github.com/LyDawei/Rate-my-services/attempts"
	"github.com/LyDawei/Rate-my-services/auth"
	"github.com/LyDawei/Rate-my-services/internal/config"
	"github.com/LyDawei/Rate-my-services/sessions"
)

// SessionCookieName is the only thing the client ever holds; the value is an
// opaque identifier, HTTP-only so script-level code never sees it.
const SessionCookieName = "rms_session"

type Server struct {
	env     string // Environment (e.g. "DEV", "production")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	limiter *loginLimiter
	logger  zerolog.Logger
	db      *sql.DB
}

// Repos bundles the persistence ports the server wires into the auth
// service. Substituting in-memory fakes here is how the handler tests run
// without a database.
type Repos struct {
	Accounts admins.Repo
	Ledger   attempts.Repo
	Sessions sessions.Store
}

func New(cfg config.Config, repos Repos, db *sql.DB, logger zerolog.Logger) (*Server, error) {
	perSecond, burst := cfg.GetLoginRateLimit()

	authService, err := auth.NewService(
		auth.Repos{Accounts: repos.Accounts, Ledger: repos.Ledger, Sessions: repos.Sessions},
		auth.Settings{
			MaxFailedAttempts: cfg.GetMaxFailedAttempts(),
			LockoutWindow:     cfg.GetLockoutWindow(),
			IdleTimeout:       cfg.GetIdleTimeout(),
			AbsoluteMaxAge:    cfg.GetAbsoluteMaxAge(),
			BcryptCost:        cfg.GetBcryptCost(),
			DummyDigest:       cfg.GetDummyDigest(),
		},
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] create auth service")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    authService,
		limiter: newLoginLimiter(perSecond, burst),
		logger:  logger,
		db:      db,
	}

	s.initRoutes()
	return s, nil
}

// Auth exposes the auth service for out-of-band callers (provisioning,
// maintenance driver).
func (s *Server) Auth() *auth.Service {
	return s.auth
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}
