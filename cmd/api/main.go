package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arjenou/5000React/internal/auth"
	"github.com/arjenou/5000React/internal/blob"
	"github.com/arjenou/5000React/internal/bootstrap"
	"github.com/arjenou/5000React/internal/config"
	"github.com/arjenou/5000React/internal/handlers"
	"github.com/arjenou/5000React/internal/middleware"
	"github.com/arjenou/5000React/internal/projects"
	"github.com/arjenou/5000React/internal/router"
	"github.com/arjenou/5000React/internal/uploads"
	"github.com/arjenou/5000React/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if cfg.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET not set, using the built-in default secret")
	}
	if cfg.AuthTestMode {
		logger.Warn("auth test mode enabled: test-admin-token and fixed credentials are accepted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	cacheStore, closeCache, err := bootstrap.OpenCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeCache()

	media, err := bootstrap.OpenBlob(ctx, cfg)
	if err != nil {
		logger.Error("blob store init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("blob store ready", slog.String("driver", cfg.BlobDriver))

	val := validation.New()
	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	authn := auth.NewAuthenticator(tokens, stores.Users, cfg.AuthTestMode)

	projectService := projects.NewService(stores.Projects, val, cacheStore,
		time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)

	server := &handlers.Server{
		Env:  cfg.Env,
		Auth: authn,
		Val:  val,
		Log:  logger,
	}

	deps := router.Deps{
		Log:            logger,
		CORSOrigins:    cfg.CORSOrigins,
		Server:         server,
		Projects:       projects.NewHandler(projectService, logger),
		Uploads:        uploads.NewHandler(media, logger),
		Auth:           authn,
		LoginLimiter:   middleware.NewRateLimiter(cfg.RateLimitLogin, time.Duration(cfg.RateLimitWindowSec)*time.Second),
		MetricsEnabled: cfg.MetricsEnabled,
	}
	if disk, ok := media.(*blob.DiskStore); ok {
		deps.MediaDir = disk.Dir
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
