package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth-backend/internal/api"
	"auth-backend/internal/auth"
	"auth-backend/internal/biz"
	"auth-backend/internal/conf"
	"auth-backend/internal/data"
	"auth-backend/internal/oidc"
	"auth-backend/internal/server"
)

var flagconf string

// sessionCleanupInterval drives the out-of-band expired-session sweep.
const sessionCleanupInterval = time.Hour

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// load config
	cfg, err := conf.Load(flagconf)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// data layer
	store, err := data.NewStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to init store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// auth layer
	redirectURL := cfg.Auth.GetRedirectURL(cfg.Server.BaseURL)
	discovery := oidc.NewDiscoveryCache()
	oidcClient := auth.NewClient(&cfg.Auth, discovery, redirectURL)
	attempts := &auth.CookieAttemptStore{Secure: cfg.Auth.CookieSecure}

	// biz layer
	identity := biz.NewIdentityUsecase(store, store, cfg.Auth.AllowEmailLinking, logger)
	sessions := biz.NewSessionUsecase(store, logger)

	// api layer
	middleware := auth.NewMiddleware(sessions, store)
	authHandler := api.NewAuthHandler(
		oidcClient, attempts, identity, sessions,
		cfg.Auth.FrontendURL, cfg.Auth.CookieSecure, logger,
	)
	router := api.NewRouter(authHandler, middleware.RequireSession())

	srv := server.New(cfg.Server.Addr, router, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("oidc authentication enabled", "issuer", cfg.Auth.Issuer, "redirect_url", redirectURL)

	// expired-session sweep, out of band of any request path
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sessions.Cleanup(context.Background()); err != nil {
					logger.Error("session cleanup failed", "error", err)
				}
			case <-cleanupDone:
				return
			}
		}
	}()

	// wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
