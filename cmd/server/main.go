package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echofeed/echofeed/internal/api"
	"github.com/echofeed/echofeed/internal/apikey"
	"github.com/echofeed/echofeed/internal/config"
	"github.com/echofeed/echofeed/internal/database"
	"github.com/echofeed/echofeed/internal/identity"
	"github.com/echofeed/echofeed/internal/oauth"
	"github.com/echofeed/echofeed/internal/obs"
	"github.com/echofeed/echofeed/internal/org"
	"github.com/echofeed/echofeed/internal/session"
	"github.com/echofeed/echofeed/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)
	obs.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	encryptionKey, err := cfg.EncryptionKeyBytes()
	if err != nil {
		slog.Error("invalid encryption key", "error", err)
		os.Exit(1)
	}

	orgRepo := org.NewRepository(db.Pool())
	userRepo := user.NewRepository(db.Pool())
	sessionRepo := session.NewRepository(db.Pool())
	keyRepo := apikey.NewRepository(db.Pool())
	connRepo := oauth.NewRepository(db.Pool())

	sessions := session.NewService(sessionRepo, cfg.SessionTTL, cfg.CookieDomain, cfg.CookieSecure)
	keys := apikey.NewService(keyRepo, orgRepo, cfg.BcryptCost)
	identitySvc := identity.NewService(orgRepo, userRepo, sessions, keys, identity.Config{
		EncryptionKey:   encryptionKey,
		TokenSecret:     []byte(cfg.TokenSecret),
		TimestampMaxAge: cfg.TimestampMaxAge,
		AuthTokenTTL:    cfg.AuthTokenTTL,
	})
	provider := oauth.NewHTTPProvider(cfg.OAuthClientID, cfg.OAuthDeviceAuthURL, cfg.OAuthTokenURL)
	oauthSvc := oauth.NewService(connRepo, provider, encryptionKey)

	router := api.NewRouter(api.RouterDeps{
		DBPinger: db,
		Version:  cfg.Version,
		Orgs:     orgRepo,
		Sessions: sessions,
		Identity: identitySvc,
		Keys:     keys,
		OAuth:    oauthSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting echofeed identity server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
