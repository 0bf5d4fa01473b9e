package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/config"
	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/handler"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/ai"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/cache"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/datastore"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/localstore"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/studio-manager-bfa-go/internal/port"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("remote_storage", cfg.RemoteConfigured()),
		zap.Bool("ai_enabled", cfg.AIConfigured()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("ai_min_interval", cfg.AIMinInterval),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "studio-manager-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Local store (device flags always; documents and accounts as fallback) ---
	db, err := localstore.OpenSQLite(cfg.LocalStorePath)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}
	flags := localstore.NewFlagStore(db)
	probes := []handler.Probe{{
		Name:  "sqlite",
		Mode:  "local",
		Check: func(ctx context.Context) error { return localstore.Ping(ctx, db) },
	}}

	// --- Storage & auth backends ---
	var backend port.DocumentBackend
	var provider port.AuthProvider
	remote := cfg.RemoteConfigured()

	if remote {
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
		storage := supabase.NewStorageBackend(supabaseClient, cfg.SupabaseBucket)
		backend = storage
		provider = supabase.NewAuthProvider(supabaseClient)
		probes = append(probes, handler.Probe{
			Name: "supabase",
			Mode: "remote",
			Check: func(ctx context.Context) error {
				_, err := storage.GetDocument(ctx, domain.SystemOwnerID, domain.CollectionUsers)
				return err
			},
		})
	} else {
		logger.Warn("Supabase not configured, using the local SQLite store",
			zap.String("path", cfg.LocalStorePath),
		)
		backend = localstore.NewDocumentStore(db, cfg.LocalStorePrefix)
		provider = localstore.NewAuthProvider(db, 0)
	}

	store := datastore.New(backend, remote, logger, metrics)

	// --- Cache ---
	userCache := cache.New[[]domain.User](cfg.CacheTTL)
	defer userCache.Close()
	directory := service.NewDirectory(store, userCache, metrics)

	// --- Generative AI ---
	var generator port.TextGenerator
	if cfg.AIConfigured() {
		generator = ai.NewGeminiClient(
			httpClient,
			cfg.GeminiURL,
			cfg.GeminiAPIKey,
			cfg.GeminiModel,
			resilience.NewCircuitBreaker("gemini"),
			resilienceCfg,
			logger,
			metrics,
		)
		logger.Info("AI assistant enabled", zap.String("model", cfg.GeminiModel))
	} else {
		logger.Warn("AI assistant: GEMINI_API_KEY not set, AI routes unavailable")
	}

	// --- Services ---
	sessions := service.NewSessionManager(service.SessionDeps{
		Store:         store,
		Flags:         flags,
		Directory:     directory,
		Bulkhead:      resilience.NewBulkhead(cfg.MaxConcurrency),
		Location:      cfg.Location(),
		Logger:        logger,
		Metrics:       metrics,
		AIMinInterval: cfg.AIMinInterval,
	})

	authSvc := service.NewAuthService(provider, store, flags, directory, sessions, service.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.JWTAccessTTL,
		LicenseKey: cfg.LicenseKey,
	}, metrics, logger)

	assistantSvc := service.NewAssistantService(generator, cfg.AIMaxToolSteps, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.RouterDeps{
		Auth:           authSvc,
		Sessions:       sessions,
		Assistant:      assistantSvc,
		Probes:         probes,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        metrics,
		Logger:         logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // AI chat runs several model turns
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
