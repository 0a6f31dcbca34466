package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sumire/issuedesk/internal/config"
	"github.com/sumire/issuedesk/internal/handler"
	"github.com/sumire/issuedesk/internal/realtime"
	"github.com/sumire/issuedesk/internal/repository"
	"github.com/sumire/issuedesk/internal/service"
	"github.com/sumire/issuedesk/internal/session"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and event stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}
	slog.Info("database connected", "driver", cfg.DatabaseDriver)

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessions.Close()

	logger := slog.Default()
	userRepo := repository.NewUserRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := realtime.NewHub(realtime.Scope(cfg.BroadcastScope), logger)
	notifier := service.NewNotifier(notificationRepo, userRepo, logger)

	router := handler.NewRouter(handler.Dependencies{
		Auth:          service.NewAuthService(userRepo, sessions, authConfig(cfg)),
		Issues:        service.NewIssueService(issueRepo, userRepo, notifier, hub, logger),
		Notifications: service.NewNotificationService(notificationRepo),
		Users:         service.NewUserService(userRepo, hub),
		Hub:           hub,
		DB:            db,
		FrontendURL:   cfg.FrontendURL,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// Event streams run on hijacked connections, which Shutdown does not wait for.
	srv.RegisterOnShutdown(hub.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port, "broadcast_scope", cfg.BroadcastScope)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

type sessionStore interface {
	service.SessionStore
	Close() error
}

// openSessions connects the refresh-session store. Without REDIS_URL refresh
// tokens are stateless and cannot be revoked.
func openSessions(ctx context.Context, cfg config.Config) (sessionStore, error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, refresh tokens cannot be revoked")
		return session.Stateless{}, nil
	}

	store, err := session.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	slog.Info("session store connected")
	return store, nil
}

func authConfig(cfg config.Config) service.AuthConfig {
	return service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		JWTSecret:          cfg.JWTSecret,
		FrontendURL:        cfg.FrontendURL,
		AccessTokenTTL:     cfg.AccessTokenTTL,
		RefreshTokenTTL:    cfg.RefreshTokenTTL,
	}
}
