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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/common/llm"
	"avatarlab.app/studio/common/logger"
	"avatarlab.app/studio/common/otel"
	"avatarlab.app/studio/core/config"
	"avatarlab.app/studio/core/db"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/http/middleware"
	httprouter "avatarlab.app/studio/internal/http/router"
	"avatarlab.app/studio/internal/provider/diffusion"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/storage"
	"avatarlab.app/studio/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet, OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "studio starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	busClient, err := bus.New(cfg.Realtime)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up event bus", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	if cfg.Realtime.Enabled() {
		slog.InfoContext(ctx, "event bus connected", "prefix", cfg.Realtime.ChannelPrefix)
	} else {
		slog.InfoContext(ctx, "event bus disabled (no redis url configured)")
	}

	objects, err := storage.NewFileStore(cfg.Storage.BasePath, cfg.Storage.PublicBaseURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up object storage", "error", err)
		os.Exit(1)
	}

	var dispatcher service.Dispatcher
	if cfg.Generator.Enabled() {
		client, err := diffusion.NewClient(cfg.Generator)
		if err != nil {
			slog.ErrorContext(ctx, "failed to set up diffusion client", "error", err)
			os.Exit(1)
		}
		dispatcher = client
		slog.InfoContext(ctx, "diffusion worker configured", "base_url", cfg.Generator.BaseURL)
	} else {
		slog.WarnContext(ctx, "diffusion worker not configured, generation disabled")
	}

	enhancer := service.NewDisabledEnhancer()
	if cfg.Enhancer.Enabled() {
		llmClient, err := llm.New(llm.Config{
			APIKey:  cfg.Enhancer.APIKey,
			BaseURL: cfg.Enhancer.BaseURL,
			Model:   cfg.Enhancer.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to set up llm client", "error", err)
			os.Exit(1)
		}
		enhancer = service.NewPromptEnhancer(llmClient, cfg.Enhancer.MaxTokens)
		slog.InfoContext(ctx, "prompt enhancer enabled", "model", llmClient.Model())
	}

	stores := store.NewStores(database.Querier())

	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		objects,
		busClient,
		enhancer,
		dispatcher,
		cfg,
	)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go services.Reaper().Run(reaperCtx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, objects)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, objects *storage.FileStore) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		AppURL:       cfg.AppURL,
		MediaDir:     objects.BasePath(),
		IsProduction: cfg.IsProduction(),
	})

	return router
}

const banner = `
███████╗████████╗██╗   ██╗██████╗ ██╗ ██████╗
██╔════╝╚══██╔══╝██║   ██║██╔══██╗██║██╔═══██╗
███████╗   ██║   ██║   ██║██║  ██║██║██║   ██║
╚════██║   ██║   ██║   ██║██║  ██║██║██║   ██║
███████║   ██║   ╚██████╔╝██████╔╝██║╚██████╔╝
╚══════╝   ╚═╝    ╚═════╝ ╚═════╝ ╚═╝ ╚═════╝
`
