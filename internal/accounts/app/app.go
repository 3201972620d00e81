package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/internal/accounts/tokens"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// BuildVersion is set at build time with -ldflags "-X ...app.BuildVersion=v1.2.3".
var BuildVersion = "v0.1.0"

// Application encapsulates the accounts service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	redis  *redis.Client // nil unless TOKEN_BACKEND=redis
	issuer tokens.Issuer
	keys   *jwtx.KeySet // nil unless TOKEN_FORMAT=jwt

	authService         *service.AuthService
	userAdminService    *service.UserAdminService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized, migrations
// applied and the admin seeded.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "accounts",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initTokens(ctx); err != nil {
		app.closeBackends()
		return nil, err
	}

	app.initServices()

	if err := app.seedAdmin(ctx); err != nil {
		app.closeBackends()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("accounts service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

func (app *Application) closeBackends() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err := postgres.NewStore(ctx, app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db

	default:
		db, err := sqlite.NewStore(app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initTokens(ctx context.Context) error {
	sessions, rdb, err := initSessions(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize token sessions: %w", err)
	}
	app.redis = rdb

	issuer, keys, err := initIssuer(app.cfg, sessions, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	app.issuer = issuer
	app.keys = keys
	return nil
}

func (app *Application) initServices() {
	hasher := service.PasswordHasher{}

	app.authService = service.NewAuthService(app.db, hasher, app.issuer)
	app.userAdminService = service.NewUserAdminService(app.db, hasher, app.issuer)
	app.bootstrapService = &service.BootstrapService{Store: app.db, Hasher: hasher}

	// Redis sessions expire on their own.
	if app.cfg.TokenBackend == TokenBackendDatabase {
		app.housekeepingService = service.NewHousekeepingService(
			app.db,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
}

// seedAdmin creates the configured administrator on an empty database.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.SeedAdminUsername == "" {
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	res, err := app.bootstrapService.SeedAdmin(ctx, service.SeedAdmin{
		Name:     app.cfg.SeedAdminName,
		Username: app.cfg.SeedAdminUsername,
		Email:    app.cfg.SeedAdminEmail,
		Password: app.cfg.SeedAdminPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	if res.GeneratedPassword != "" {
		// Printed outside the logger so it never reaches log storage.
		fmt.Fprintf(os.Stderr, "\nGenerated password for %q: %s\nChange it after the first login.\n\n",
			app.cfg.SeedAdminUsername, res.GeneratedPassword)
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.cfg.APIPrefix,
		BuildVersion,
		app.logger,
		app.cfg.ExposeInternalErrors,
	)

	router.AuthService = app.authService
	router.UserAdminService = app.userAdminService
	router.KeySet = app.keys

	router.AddReadinessCheck("database", app.db.Ping)
	if app.redis != nil {
		router.AddReadinessCheck("redis", func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		})
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
