package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"portfolio/cms/internal/app"
	"portfolio/cms/internal/cache"
	"portfolio/cms/internal/config"
	"portfolio/cms/internal/export"
	"portfolio/cms/internal/gitrepo"
	"portfolio/cms/internal/search"
	"portfolio/cms/internal/session"
	"portfolio/cms/internal/store"
	"portfolio/cms/internal/uploads"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(); err != nil {
		fatal(logger, "load .env failed", err)
	}
	cfg := config.LoadAPI()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "database connection failed", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, store.Migrations()); err != nil {
		fatal(logger, "migrations failed", err)
	}

	dataStore := store.NewPostgresStore(db)
	gitService := gitrepo.New(cfg.HistoryDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, logger)

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithExporter(export.NewService(dataStore, "", cfg.ChromeURL)),
	}

	uploadStorage, err := newUploadStorage(ctx, cfg)
	if err != nil {
		fatal(logger, "upload storage failed", err)
	}
	opts = append(opts, app.WithUploads(uploads.NewService(uploadStorage, cfg.UploadsBaseURL, cfg.MaxUploadBytes)))

	var service *app.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for refresh sessions and portfolio cache")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			fatal(logger, "redis connection failed", err)
		}
		defer redisStore.Close()
		opts = append(opts, app.WithCache(cache.NewPortfolioCache(redisStore.Client(), cfg.CacheTTL)))
		service, err = app.NewWithSessionStore(cfg, dataStore, redisStore, gitService, searchService, opts...)
		if err != nil {
			fatal(logger, "service setup failed", err)
		}
	} else {
		logger.Info("using postgres for refresh sessions")
		service, err = app.New(cfg, dataStore, gitService, searchService, opts...)
		if err != nil {
			fatal(logger, "service setup failed", err)
		}
	}
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap error, will retry on next restart", "error", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("portfolio API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server failed", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newUploadStorage(ctx context.Context, cfg config.API) (uploads.Storage, error) {
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		return uploads.NewLocalStorage(cfg.UploadsDir)
	}
	return uploads.NewMinioStorage(ctx, uploads.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
