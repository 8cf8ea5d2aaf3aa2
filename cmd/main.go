package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cliply/interaction-service/internal/batch"
	"github.com/cliply/interaction-service/internal/cache"
	"github.com/cliply/interaction-service/internal/config"
	"github.com/cliply/interaction-service/internal/domain"
	"github.com/cliply/interaction-service/internal/events"
	"github.com/cliply/interaction-service/internal/handler"
	"github.com/cliply/interaction-service/internal/reconciler"
	"github.com/cliply/interaction-service/internal/repository"
	"github.com/cliply/interaction-service/internal/service"
	"github.com/cliply/interaction-service/pkg/database"
	"github.com/cliply/interaction-service/pkg/jwt"
	pkglog "github.com/cliply/interaction-service/pkg/log"
	"github.com/cliply/interaction-service/pkg/middleware"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "interaction-service",
	})
	logger := pkglog.L()

	// 3. Init DB (GORM, auto-migrate interaction models)
	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// 4. Init Redis counter cache
	counterCache, err := cache.NewRedisCounterCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer counterCache.Close()
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	// 5. Create repositories
	likeRepo := repository.NewGormLikeRepository(db)
	commentRepo := repository.NewGormCommentRepository(db)
	followRepo := repository.NewGormFollowRepository(db)
	shareRepo := repository.NewGormShareRepository(db)
	viewRepo := repository.NewGormViewRepository(db)

	// 6. Init Kafka publisher. The event bus is best-effort: without
	// brokers the service still serves traffic, it just stops fanning out.
	var bus events.Publisher
	if cfg.Kafka.Brokers != "" {
		publisher, err := events.NewConfluentPublisher(cfg.Kafka.Brokers, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka publisher, event fan-out disabled")
		} else {
			bus = publisher
			logger.Info().Str("brokers", cfg.Kafka.Brokers).Msg("kafka publisher ready")
		}
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not configured; event fan-out disabled")
	}
	if bus == nil {
		bus = events.NopPublisher{}
	}

	// 7. Create the interaction engine
	svc := service.NewInteractionService(likeRepo, commentRepo, followRepo, shareRepo, viewRepo, counterCache, bus)

	// 8. Init reconciler and start
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := reconciler.New(counterCache, likeRepo, commentRepo, followRepo, shareRepo, viewRepo, cfg.Reconciler)
	rec.Start(ctx)
	logger.Info().Dur("interval", cfg.Reconciler.Interval).Int("top_n", cfg.Reconciler.TopN).Msg("reconciler started")

	// 9. Setup Gin router + HTTP server
	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 24*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	loader := batch.NewLoader(cfg.Batch.Window, cfg.Batch.TTL)
	httpHandler := handler.NewHandler(svc, loader, authMiddleware)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(*logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	httpHandler.RegisterRoutes(r)

	// 10. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("interaction-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// 1. cancel(): stop the reconciler ticker
		cancel()

		// 2. reconciler.Stop(); <-reconciler.Done()
		rec.Stop()
		<-rec.Done()

		// 3. bus.Close(): flush in-flight events
		if err := bus.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing kafka publisher")
		}

		// 4. server.Shutdown(5s): drain HTTP
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("interaction-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
