package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/photo-validator/internal/auth"
	"github.com/example/photo-validator/internal/config"
	"github.com/example/photo-validator/internal/handlers"
	"github.com/example/photo-validator/internal/logging"
	"github.com/example/photo-validator/internal/pipeline"
	"github.com/example/photo-validator/internal/repository"
	"github.com/example/photo-validator/internal/storage"
	"github.com/example/photo-validator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	db := initDatabase(ctx, cfg, logger)
	repo := repository.NewRecordRepository(db, logger)
	if err := repo.AutoMigrate(ctx); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, cfg, logger)

	store, err := storage.NewLocalStore(cfg.PhotosDir)
	if err != nil {
		logger.Fatal("failed to prepare photos directory", zap.Error(err))
	}
	uploader := storage.NewSupabaseUploader(cfg.StorageURL, cfg.StorageKey, cfg.StorageBucket, cfg.StorageTimeout, logger)

	pipe := pipeline.New(cfg.Pipeline, initLocator(cfg, logger))

	cache := usecase.NewRedisCache(redisClient)
	uc := usecase.NewValidationUseCase(pipe, repo, store, uploader, cache, logger)

	router := gin.Default()
	router.MaxMultipartMemory = handlers.MaxUploadSize
	router.Use(cors.Default())

	var metricsAuth gin.HandlerFunc
	if cfg.JWTSecret != "" {
		metricsAuth = auth.JWTMiddleware(cfg.JWTSecret, cfg.JWTAudience)
	}
	handlers.RegisterRoutes(router, uc, cfg, metricsAuth)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	logger.Info("photo validator listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("preset", cfg.PresetName),
		zap.Bool("storage_configured", cfg.StorageConfigured()),
	)
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// initLocator loads the pigo cascade. A missing or broken model disables
// face detection instead of failing startup; the face-rule preset then
// reports a missing face as a validation issue.
func initLocator(cfg *config.Config, logger *zap.Logger) pipeline.Locator {
	if cfg.CascadePath == "" {
		logger.Warn("FACEFINDER_PATH not set, face detection disabled")
		return nil
	}
	model, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		logger.Warn("failed to read face detection model, face detection disabled", zap.Error(err))
		return nil
	}
	locator, err := pipeline.NewPigoLocator(model)
	if err != nil {
		logger.Warn("failed to unpack face detection model, face detection disabled", zap.Error(err))
		return nil
	}
	return locator
}

func initDatabase(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
