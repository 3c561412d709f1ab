package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rbacadmin/internal/auth"
	"rbacadmin/internal/config"
	"rbacadmin/internal/httpserver"
	"rbacadmin/internal/logger"
	"rbacadmin/internal/models"
	"rbacadmin/internal/ratelimit"
	"rbacadmin/internal/seed"
)

func main() {
	cfg, err := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()
	if err != nil {
		lg.Fatalw("config load failed", "error", err)
	}

	db, err := models.Open(cfg.DBDriver, cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatalw("db connect failed", "driver", cfg.DBDriver, "error", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedOnStart {
		if err := seed.Run(ctx, db, lg); err != nil {
			lg.Fatalw("seed failed", "error", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = ratelimit.Connect(ctx, cfg.RedisURL); err != nil {
			lg.Warnw("redis unavailable, login rate limiting disabled", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	router := httpserver.NewRouter(db, lg, httpserver.Options{
		Tokens:         auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL()),
		LoginLimiter:   ratelimit.New(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.LoginRateBlock, "login", lg),
		AllowedOrigins: cfg.AllowedOrigins(),
		Environment:    cfg.Environment,
		Debug:          cfg.Debug,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		lg.Infow("listening", "port", cfg.HTTPPort, "environment", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Errorw("shutdown failed", "error", err)
		}
		lg.Infow("server stopped")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalw("server failed", "error", err)
		}
	}
}
