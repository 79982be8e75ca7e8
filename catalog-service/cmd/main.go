package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/catalog-service/internal/app/catalog/config"
	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/handler"
	"marketplace/catalog-service/internal/app/catalog/processor"
	"marketplace/catalog-service/internal/app/catalog/rating"
	"marketplace/catalog-service/internal/app/catalog/repository"
	"marketplace/catalog-service/internal/app/catalog/search"
	"marketplace/catalog-service/internal/app/catalog/service"
	"marketplace/catalog-service/internal/app/catalog/util"
	"marketplace/catalog-service/migrations"
	"marketplace/pkg/logger"
	"marketplace/pkg/retry"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	initLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	db, err := connectDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	logger.Info().Msg("Successfully connected to PostgreSQL")

	if err := migrations.Up(cfg.Database.DSN()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// gorm работает поверх того же пула, что и поиск с агрегатором
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.NewGormLogger(cfg.Database.SlowQuery),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize gorm")
	}

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Successfully connected to Redis")

	// === ИНИЦИАЛИЗАЦИЯ KAFKA PRODUCER ===
	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout)
	defer kafkaProducer.Close()
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka producer initialized")

	// === РЕПОЗИТОРИИ ===
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(gormDB)
	reviewRepo := repository.NewReviewRepository(gormDB)

	// === ПОИСК И РЕЙТИНГ ===
	ranker := search.NewRanker(cfg.Search.FullText, cfg.Search.TextConfig)
	engine := search.NewEngine(ranker, search.NewExecutor(db))
	logger.Info().Str("mode", string(engine.Mode())).Msg("Search engine initialized")

	aggregator := rating.NewAggregator(db, rating.WithRetryBackoff(cfg.Rating.RetryBackoff))

	// === БИЗНЕС-ЛОГИКА ===
	catalogService := service.NewCatalogService(
		categoryRepo,
		productRepo,
		engine,
		redisClient,
		kafkaProducer,
		cfg.Redis.CategoriesTTL,
	)
	ratingService := service.NewRatingService(aggregator, redisClient, kafkaProducer)
	reviewService := service.NewReviewService(reviewRepo, productRepo, ratingService, kafkaProducer)

	// === ФОНОВАЯ СВЕРКА РЕЙТИНГОВ ===
	reconciler := processor.NewRatingReconciler(ratingService, cfg.Rating.ReconcileBatch)
	if err := reconciler.Start(ctx, cfg.Rating.ReconcileSchedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start rating reconciler")
	}

	// === HTTP ===
	router := handler.SetupRoutes(handler.Handlers{
		Catalog: handler.NewCatalogHandler(catalogService),
		Reviews: handler.NewReviewHandler(reviewService),
		Ratings: handler.NewRatingHandler(ratingService),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db,
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return redisClient.Client().Ping(ctx).Err()
			}),
		}),
	}, handler.NewAuthMiddleware(cfg.JWT.Secret))

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("Starting Catalog Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	<-ctx.Done()
	logger.Info().Msg("Shutting down Catalog Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	reconciler.Stop()

	logger.Info().Msg("Catalog Service stopped gracefully")
}

func initLogger(cfg config.LogConfig) {
	if cfg.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.LogstashAddr, entity.ServiceName, cfg.Level); err == nil {
			return
		}
	}
	logger.Init(entity.ServiceName, cfg.Level)
}

// connectDB открывает пул database/sql поверх pgx и ждёт готовности PostgreSQL.
// При запуске в Docker база может подняться позже сервиса.
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = retry.Do(ctx, retry.RetryConfig{
		MaxAttempts: cfg.ConnectAttempts,
		Backoff:     retry.LinearBackoff(3 * time.Second),
		OnRetry: func(attempt int, err error) {
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", cfg.ConnectAttempts).
				Msg("Failed to connect to database")
		},
	}, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", cfg.ConnectAttempts, err)
	}

	return db, nil
}
