package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/service-starter/internal/api"
	"github.com/eugenenazirov/service-starter/internal/config"
	"github.com/eugenenazirov/service-starter/internal/status"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg     config.Config
	tracker *status.Tracker
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tracker := status.NewTracker()
	tracker.Register("config", func(context.Context) error {
		return cfg.Validate()
	})
	tracker.Register("upload_path", func(context.Context) error {
		return ensureDir(cfg.Upload.Path)
	})

	handler := api.NewHandler(cfg, tracker)
	router := api.NewRouter(handler, logger)

	return &App{
		cfg:     cfg,
		tracker: tracker,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  NewServer(cfg, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Server.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// Warmup runs the readiness checks once. A failing component is logged and
// leaves the application alive but not ready.
func (a *App) Warmup(ctx context.Context) error {
	if err := a.tracker.Warmup(ctx); err != nil {
		a.logger.Warn("application not ready", zap.Error(err))
		return err
	}
	a.logger.Info("application ready",
		zap.String("env", a.cfg.App.Env),
		zap.Strings("sources", a.cfg.Sources),
	)
	return nil
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Ready reports whether every component passed its last check.
func (a *App) Ready() bool {
	return a.tracker.Ready()
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
