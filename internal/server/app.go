// Package server initializes and runs the notekeeper API server. It
// wires the PostgreSQL-backed repositories, the HTTP router, the
// websocket hub for change notifications and the periodic S3 backup.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/server/backup"
	"github.com/avoronova/notekeeper/internal/server/config"
	"github.com/avoronova/notekeeper/internal/server/httpapi"
	"github.com/avoronova/notekeeper/internal/server/repositories"
	"github.com/avoronova/notekeeper/internal/server/services"
	"github.com/avoronova/notekeeper/internal/server/ws"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	mgr     repositories.Manager
	handler *httpapi.Handler
	backup  *backup.Runner
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}

	mgr, err := repositories.NewPostgresManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hub := ws.NewHub(logger)
	handler := httpapi.NewHandler(
		services.NewUserService(mgr, cfg),
		services.NewNoteService(mgr.Notes(), logger),
		hub,
		logger,
	)

	bk, err := backup.NewRunner(ctx, cfg, mgr, logger)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("backup init error: %w", err)
	}

	return &App{config: cfg, logger: logger, mgr: mgr, handler: handler, backup: bk}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.Addr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.Addr,
		Handler: app.handler.Router(),
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server failed", "error", err)
			cancelFunc()
		}
	}()

	if app.backup.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.backup.Run(ctx)
		}()
	}

	<-ctx.Done()

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}

	wg.Wait()

	if err := app.mgr.Close(); err != nil {
		app.logger.Error(context.Background(), "closing database", "error", err)
	}
}
