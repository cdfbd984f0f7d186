package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/andrescris/shopfront/config"
	"github.com/andrescris/shopfront/pkg/assets"
	"github.com/andrescris/shopfront/pkg/catalog"
	"github.com/andrescris/shopfront/pkg/console"
	"github.com/andrescris/shopfront/pkg/form"
	"github.com/andrescris/shopfront/pkg/handlers"
	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/middleware"
)

const (
	janitorWorkers  = 4
	shutdownTimeout = 10 * time.Second
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("CRITICAL: Error loading configuration: %v", err)
	}
	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("CRITICAL: Error building logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Backends: Firebase when enabled, in-process otherwise.
	b, err := openBackends(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("CRITICAL: Error initializing backends", zap.Error(err))
	}
	defer b.Close()

	if err := os.MkdirAll(cfg.Server.StagingDir, 0o750); err != nil {
		zlog.Fatal("CRITICAL: Cannot create staging dir", zap.String("dir", cfg.Server.StagingDir), zap.Error(err))
	}

	// 2. Asset pipeline and cleanup pool.
	janitor, err := assets.NewJanitor(b.assets, janitorWorkers, zlog.Named("janitor"))
	if err != nil {
		zlog.Fatal("CRITICAL: Error starting asset janitor", zap.Error(err))
	}
	defer janitor.Release()
	pipeline := assets.NewPipeline(b.assets, assets.FileSource{}, assets.Options{
		Prefix: cfg.Catalog.StoragePrefix,
		Brand:  cfg.Catalog.BrandName,
	}, zlog.Named("assets"))

	// 3. Storefront view and admin consoles.
	storefront := catalog.NewBrowser(b.catalog, catalog.StorefrontQuery, zlog.Named("storefront"))
	if err := storefront.Start(ctx); err != nil {
		zlog.Fatal("CRITICAL: Error subscribing to the catalog", zap.Error(err))
	}
	defer storefront.Stop()

	registry := console.NewRegistry(console.Deps{
		Store:    b.catalog,
		Uploader: pipeline,
		Cleaner:  janitor,
		Defaults: form.DefaultsFrom(cfg.Catalog),
		Provider: b.identity,
		Log:      zlog.Named("console"),
	}, cfg.Console.IdleTTL)
	if err := registry.Start(); err != nil {
		zlog.Fatal("CRITICAL: Error scheduling console sweep", zap.Error(err))
	}
	defer registry.Stop()

	// 4. Router.
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zlog.Named("http")))
	r.MaxMultipartMemory = 32 << 20
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		zlog.Fatal("CRITICAL: Invalid TRUSTED_PROXIES", zap.Error(err))
	}

	handlers.New(handlers.Deps{
		Storefront: storefront,
		Consoles:   registry,
		Catalog:    cfg.Catalog,
		StagingDir: cfg.Server.StagingDir,
		APIKey:     cfg.Server.APIKey,
		Assets:     b.memoryAssets,
		Log:        zlog.Named("handlers"),
	}).Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("storefront API listening", zap.String("addr", srv.Addr), zap.Bool("firebase", cfg.Firebase.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("graceful shutdown failed", zap.Error(err))
	}
}
