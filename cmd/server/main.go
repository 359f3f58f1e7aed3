package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/sheetpattern/internal/catalog"
	"github.com/rpattn/sheetpattern/internal/config"
	"github.com/rpattn/sheetpattern/internal/db"
	"github.com/rpattn/sheetpattern/internal/middleware"
	"github.com/rpattn/sheetpattern/internal/recorder"
	"github.com/rpattn/sheetpattern/internal/replay"
	"github.com/rpattn/sheetpattern/internal/repository"
	"github.com/rpattn/sheetpattern/internal/session"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	bootLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	cfg, err := config.Load(*configPath, bootLogger)
	if err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		bootLogger.Fatal("failed to create logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(conn.Pool, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	store, closeStore, err := newSessionStore(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to create session store", zap.Error(err))
	}
	defer closeStore()

	rec, err := recorder.New(cfg.RecorderSettings())
	if err != nil {
		logger.Fatal("invalid recorder configuration", zap.Error(err))
	}

	patternRepo := repository.NewPatternRepository(conn.Pool)
	sessionService := session.NewService(rec, store, patternRepo, logger)
	catalogService := catalog.NewService(patternRepo, logger)
	executor := replay.NewExecutor(logger)

	router := mux.NewRouter()
	router.Use(
		middleware.LoggingMiddleware(logger),
		middleware.WorkspaceMiddleware,
		middleware.DataLoaderMiddleware(patternRepo),
	)
	session.NewHTTPHandler(sessionService, cfg.Server.AllowedOrigins, logger).Register(router)
	catalog.NewHTTPHandler(catalogService, logger).Register(router)
	replay.NewHTTPHandler(executor, patternRepo, logger).Register(router)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Steps-Applied", "X-Steps-Skipped"},
	})

	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     corsHandler.Handler(router),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket streams stay open for the whole session.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting pattern recorder server",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("header_row_index", rec.HeaderRowIndex()),
			zap.Duration("window", rec.Window()))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	return cfg.Build()
}

func newSessionStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (session.Store, func(), error) {
	if cfg.Addr == "" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.Info("using redis session store", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return session.NewRedisStore(client, cfg.TTL), closeFn, nil
}
