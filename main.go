package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/chatbot"
	"github.com/datacue/datacue-engine/pkg/config"
	"github.com/datacue/datacue-engine/pkg/database"
	"github.com/datacue/datacue-engine/pkg/forecast"
	"github.com/datacue/datacue-engine/pkg/handlers"
	"github.com/datacue/datacue-engine/pkg/llm"
	"github.com/datacue/datacue-engine/pkg/logging"
	"github.com/datacue/datacue-engine/pkg/middleware"
	"github.com/datacue/datacue-engine/pkg/querycache"
	"github.com/datacue/datacue-engine/pkg/schema"
	"github.com/datacue/datacue-engine/pkg/schemacache"
	"github.com/datacue/datacue-engine/pkg/segment"
	"github.com/datacue/datacue-engine/pkg/sqlgen"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("engine_db", logging.SanitizeDSN(cfg.Engine.ConnectionString())),
		zap.String("datasource_host", cfg.Datasource.Host),
		zap.String("datasource_db", cfg.Datasource.Database),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	ctx := context.Background()

	// Engine store (schema cache, forecast audit, chat history).
	engineDB, err := database.NewEngineDB(ctx, &database.EngineConfig{
		URL:            cfg.Engine.ConnectionString(),
		MaxConnections: cfg.Engine.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine database", zap.Error(err))
	}
	defer engineDB.Close()

	// golang-migrate wants a database/sql handle; bridge it from the pool.
	migrationDB := stdlib.OpenDBFromPool(engineDB.Pool)
	if err := database.RunMigrations(migrationDB, cfg.Engine.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// Tenant sales datasource.
	datasource, err := database.NewDatasource(ctx, &database.DatasourceConfig{
		DSN:          cfg.Datasource.DSN(),
		MaxOpenConns: cfg.Datasource.MaxOpenConns,
		MaxIdleConns: cfg.Datasource.MaxIdleConns,
	})
	if err != nil {
		logger.Fatal("Failed to connect to datasource", zap.Error(err))
	}
	defer func() { _ = datasource.Close() }()

	llmClient, err := llm.NewClient(&llm.Config{
		Provider:    cfg.LLM.Provider,
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Caches.
	discoverer := schema.NewDiscoverer(datasource, cfg.Datasource.Database, logger)
	schemaCache := schemacache.New(
		schemacache.NewPostgresStore(engineDB),
		discoverer,
		time.Duration(cfg.Cache.SchemaTTLHours)*time.Hour,
		logger)

	queryCache := querycache.New(querycache.Config{
		MaxEntries:   cfg.Cache.QueryMaxEntries,
		DefaultTTL:   time.Duration(cfg.Cache.QueryDefaultTTLSecs) * time.Second,
		AggregateTTL: time.Duration(cfg.Cache.QueryAggregateTTLSec) * time.Second,
		VolatileTTL:  time.Duration(cfg.Cache.QueryVolatileTTLSecs) * time.Second,
	}, logger)
	queryCache.StartSweeper(10 * time.Minute)

	// Engines.
	generator := sqlgen.NewGenerator(llmClient, datasource, cfg.Chat.MaxAttempts, cfg.LLM.Temperature, logger)
	forecaster := forecast.NewEngine(datasource, forecast.NewPostgresAuditStore(engineDB), logger)
	segmenter := segment.NewSegmenter(datasource, logger)
	history := chatbot.NewPostgresHistoryStore(engineDB)

	service := chatbot.New(schemaCache, queryCache, generator, forecaster, segmenter,
		llmClient, history, chatbot.Config{
			MaxQuestionLength: cfg.Chat.MaxQuestionLength,
			HistoryLimit:      cfg.Chat.HistoryLimit,
			Temperature:       cfg.LLM.Temperature,
		}, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(service, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(schemaCache, queryCache, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting datacue-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
