// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "userstore/internal/api"
	"userstore/internal/api/handler"
	"userstore/internal/config"
	"userstore/internal/migrations"
	"userstore/internal/repository"
	"userstore/internal/repository/postgres"
	"userstore/internal/service"
	"userstore/internal/util"
	"userstore/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	UserRepository repository.UserRepository

	// Services
	UserService service.UserService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "db_driver", cfg.DB.DriverName())

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if app.Config.DB.AutoMigrate {
		if err := db.Migrate(ctx, app.DB, migrations.FS); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		app.Logger.Info("Database schema is up to date.")
	}

	// 4. Initialize Repositories
	app.UserRepository = postgres.NewUserRepository(app.DB)

	// 5. Initialize Services
	app.UserService = service.NewUserService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.UserRepository,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	userHandler := handler.NewUserHandler(app.UserService, app.Logger)
	app.HTTPHandler = router.NewRouter(userHandler, app.Logger, app.Config.RequestTimeout)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// NewHTTPServer builds the HTTP server from the configured port and timeouts.
func (app *Application) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + app.Config.ServerPort,
		Handler:      app.HTTPHandler,
		ReadTimeout:  app.Config.ReadTimeout,
		WriteTimeout: app.Config.WriteTimeout,
		IdleTimeout:  app.Config.IdleTimeout,
	}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout. It returns early if the listener fails.
func (app *Application) Run(ctx context.Context) error {
	server := app.NewHTTPServer()

	serveErr := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting HTTP server", "addr", server.Addr)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return <-serveErr
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
