package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/LyDawei/Rate-my-services/admins"
	adminsqlite "github.com/LyDawei/Rate-my-services/admins/sqliterepo"
	attemptsqlite "github.com/LyDawei/Rate-my-services/attempts/sqliterepo"
	"github.com/LyDawei/Rate-my-services/internal/config"
	"github.com/LyDawei/Rate-my-services/internal/storage"
	"github.com/LyDawei/Rate-my-services/server"
	"github.com/LyDawei/Rate-my-services/sessions/sqlitestore"
)

func main() {
	createAdmin := flag.String("create-admin", "", "provision an admin account (username) and exit; reads ADMIN_PASSWORD and ADMIN_DISPLAY_NAME from the environment")
	flag.Parse()

	logger := newLogger()

	if err := run(logger, *createAdmin); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if (config.EnvVars{}).GetEnv() == "DEV" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}

func run(logger zerolog.Logger, createAdmin string) error {
	c := config.New()

	ctx := context.Background()
	db, err := storage.Open(ctx, c.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("storage.Open: %w", err)
	}
	defer db.Close()

	// Session table normalization runs before anything touches sessions; a
	// failed migration refuses to start rather than serving a half-migrated
	// store.
	if err := sqlitestore.Migrate(ctx, db, logger); err != nil {
		return fmt.Errorf("session store migration: %w", err)
	}

	repos := server.Repos{
		Accounts: adminsqlite.New(db, c.GetBcryptCost()),
		Ledger:   attemptsqlite.New(db),
		Sessions: sqlitestore.New(db),
	}

	if createAdmin != "" {
		return provisionAdmin(ctx, repos, createAdmin, logger)
	}

	displayAppname(c.GetAppName())

	srv, err := server.New(c, repos, db, logger)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	maintenanceCtx, cancelMaintenance := context.WithCancel(ctx)
	defer cancelMaintenance()
	srv.StartMaintenance(maintenanceCtx, c.GetMaintenanceInterval())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server.ListenAndServe")
		}
	}()

	waitForStopSignal()
	return shutdown(httpServer)
}

// provisionAdmin is the out-of-band provisioning step; account creation is
// never reachable through the public API.
func provisionAdmin(ctx context.Context, repos server.Repos, username string, logger zerolog.Logger) error {
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return errors.New("ADMIN_PASSWORD must be set to provision an admin")
	}
	if err := admins.ValidatePasswordStrength(password); err != nil {
		return fmt.Errorf("weak admin password: %w", err)
	}
	displayName := os.Getenv("ADMIN_DISPLAY_NAME")
	if displayName == "" {
		displayName = username
	}

	account, err := repos.Accounts.Create(ctx, username, password, displayName)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info().Str("id", account.ID).Str("username", account.Username).Msg("admin account created")
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
