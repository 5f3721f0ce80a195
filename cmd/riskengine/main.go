package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"

	cfg "github.com/sand/wallet-risk-engine/backend/config"
	"github.com/sand/wallet-risk-engine/backend/internal/ai"
	"github.com/sand/wallet-risk-engine/backend/internal/audit"
	"github.com/sand/wallet-risk-engine/backend/internal/chain"
	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/handlers"
	"github.com/sand/wallet-risk-engine/backend/internal/metrics"
	"github.com/sand/wallet-risk-engine/backend/internal/risk"
	"github.com/sand/wallet-risk-engine/backend/internal/threat"
	"github.com/sand/wallet-risk-engine/backend/internal/verification"
	"github.com/sand/wallet-risk-engine/backend/internal/workers"
	"github.com/sand/wallet-risk-engine/backend/pkg/database"
)

const threatCachePrefix = "riskengine:threat:"

func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(config)
	logger.Info("Starting application with configuration",
		"name", config.App.Name,
		"environment", config.App.Environment,
		"server_port", config.HTTP.Port,
		"database_configured", config.DB.DatabaseURL != "",
		"redis_configured", config.Cache.RedisURL != "")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Storage: postgres when configured, in-memory otherwise
	var (
		reportStore ports.ThreatLookup
		auditStore  audit.Store
	)
	if config.DB.DatabaseURL != "" {
		pg, err := database.New(ctx, config.DB.DatabaseURL,
			database.MaxPoolSize(config.DB.PoolMax),
			database.ConnTimeout(config.DB.ConnectTimeout),
			database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
			database.Isolation(pgx.ReadCommitted),
		)
		if err != nil {
			logger.Error("postgres connection failed", "error", err)
			return
		}
		defer pg.Close()

		migrationsPath := database.MigrationsDir(config.DB.MigrationsPath)
		logger.Info("Running database migrations", "path", migrationsPath)
		if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
			logger.Error("Failed to run database migrations", "error", err)
			return
		}

		reportStore = threat.NewPostgresStore(logger, pg)
		auditStore = audit.NewPostgresStore(logger, pg)
		go metrics.StartDBStatsCollector(ctx, pg.Pool, 15*time.Second)
	} else {
		logger.Warn("No database configured, using in-memory report and audit stores")
		reportStore = threat.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	threatLookup := initThreatLookup(ctx, logger, config, reportStore)

	// Collaborators
	provider := chain.NewAlchemyProvider(logger, config.Blockchain.AlchemyAPIKey, config.Blockchain.NetworkURLs, config.Blockchain.Timeout())
	defer provider.Close()
	gatherer := chain.NewGatherer(logger, provider, chain.CallTimeout(config.Blockchain.Timeout()))

	insights := ai.NewClient(logger, config.AI.APIKey, config.AI.BaseURL, config.AI.Model, config.AI.RequestTimeout())

	vault, err := audit.NewVault(config.Audit.EncryptionKey, config.Audit.MinValueAED)
	if err != nil {
		logger.Error("Failed to initialise audit vault", "error", err)
		return
	}
	auditService := audit.NewService(logger, vault, auditStore, config.Audit.ListLimit)

	orchestrator := verification.NewOrchestrator(logger, gatherer, threatLookup, insights, auditService,
		verification.MinAmountAED(config.Verification.MinAmountAED),
		verification.TransferLimit(config.Verification.RecentTransfers),
		verification.AITimeout(config.AI.RequestTimeout()),
		verification.Simulation(config.Verification.SimulationEnabled && !config.IsProduction()),
	)

	logger.Info("Risk engine initialized",
		"blockchain_enabled", provider.IsEnabled(),
		"ai_enabled", insights.IsEnabled(),
		"audit_vault_enabled", vault.Configured())

	// Create handlers
	httpHandler := handlers.NewHTTPHandler(logger, risk.NewScorer(), threatLookup, orchestrator, auditService, config.IsProduction())

	router := mux.NewRouter()
	router.Use(metrics.Middleware)
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	httpHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  time.Duration(config.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(config.HTTP.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(config.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func newLogger(config *cfg.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.SlogLevel()}
	if config.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// initThreatLookup puts a TTL cache in front of the report store: redis when
// configured, otherwise an in-memory cache swept by the janitor worker.
func initThreatLookup(ctx context.Context, logger *slog.Logger, config *cfg.Config, store ports.ThreatLookup) ports.ThreatLookup {
	if config.Cache.RedisURL != "" {
		client, err := database.NewRedis(ctx, config.Cache.RedisURL)
		if err == nil {
			logger.Info("Threat history cache backed by redis")
			return threat.NewCachedLookup(logger, store, threat.NewRedisCache(client, threatCachePrefix), config.Cache.EntryTTL())
		}
		logger.Error("Redis unavailable, falling back to in-memory cache", "error", err)
	}

	cache := threat.NewMemoryCache(time.Now)
	janitor := workers.NewCacheJanitor(logger, cache, config.Cache.JanitorEvery())
	go janitor.Start(ctx)

	return threat.NewCachedLookup(logger, store, cache, config.Cache.EntryTTL())
}
