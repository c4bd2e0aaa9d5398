package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/config"
	"github.com/lexhaven/lexhaven-engine/pkg/database"
	"github.com/lexhaven/lexhaven-engine/pkg/handlers"
	"github.com/lexhaven/lexhaven-engine/pkg/llm"
	"github.com/lexhaven/lexhaven-engine/pkg/middleware"
	"github.com/lexhaven/lexhaven-engine/pkg/repositories"
	"github.com/lexhaven/lexhaven-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Database),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Bool("cache_enabled", cfg.Redis.Host != ""))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Migrations run through database/sql (required by golang-migrate).
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	embedder, err := llm.NewEmbedder(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}
	generator, err := llm.NewGenerator(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create generation client", zap.Error(err))
	}

	creditRepo := repositories.NewCreditRepository(db)
	passageRepo := repositories.NewPassageRepository(db)
	searchLogRepo := repositories.NewSearchLogRepository(db)

	ledger := services.NewLedgerService(creditRepo, cfg.Credits, logger)
	cache := services.NewAnswerCache(redisClient, logger)
	search := services.NewSearchService(passageRepo, logger)
	queries := services.NewQueryService(
		ledger,
		cache,
		search,
		services.NewConfidenceScorer(),
		services.NewCitationResolver(),
		services.NewRateLimiter(cfg.Query.RatePerMinute),
		embedder,
		generator,
		searchLogRepo,
		cfg.Query,
		cfg.AI,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg).RegisterRoutes(mux)
	handlers.NewAskHandler(queries, logger).RegisterRoutes(mux)
	handlers.NewCreditsHandler(ledger, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting lexhaven-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
