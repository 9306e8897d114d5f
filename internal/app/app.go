package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-school-portal/internal/config"
	"go-school-portal/internal/database"
	"go-school-portal/internal/event"
	"go-school-portal/internal/handler"
	"go-school-portal/internal/metrics"
	"go-school-portal/internal/middleware"
	"go-school-portal/internal/repository"
	"go-school-portal/internal/router"
	"go-school-portal/internal/service"
	"go-school-portal/internal/token"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database ready")

	authService, err := NewAuthService(cfg, repository.NewCredentialRepository(db.Pool))
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := event.NewBus()
	auditService := service.NewAuditService(repository.NewAuditRepository(db.Pool), bus)
	auditCtx, auditCancel := context.WithCancel(ctx)
	auditDone := auditService.Start(auditCtx)
	authService.SetEventBus(bus)

	m := metrics.New()
	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService, m), router.Handlers{
		Auth:   handler.NewAuthHandler(authService, m),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(db),
	}, m)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: []func(){
			func() {
				auditCancel()
				<-auditDone
			},
			db.Close,
		},
	}, nil
}

// NewAuthService wires the codec and service from configuration. The admin CLI shares it.
func NewAuthService(cfg *config.Config, store service.CredentialStore) (*service.AuthService, error) {
	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	authService, err := service.NewAuthService(store, codec, cfg.SessionTokenTTL, cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	return authService, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, fn := range a.cleanupFuncs {
		fn()
	}
}
