package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harshits337/e-commerce-data-pipeline/analytics"
	"github.com/harshits337/e-commerce-data-pipeline/catalog"
	"github.com/harshits337/e-commerce-data-pipeline/config"
	"github.com/harshits337/e-commerce-data-pipeline/handlers"
	"github.com/harshits337/e-commerce-data-pipeline/kafka"
	"github.com/harshits337/e-commerce-data-pipeline/middleware"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "clickstream-api"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := middleware.InitTracing(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// Catalog: Postgres source of truth, optional Redis cache.
	catalogDB, err := catalog.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize catalog database", zap.Error(err))
	}
	defer catalogDB.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = catalog.InitRedis(cfg, logger)
		if err != nil {
			logger.Warn("Catalog cache unavailable, continuing without it", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	repo := catalog.NewRepository(catalogDB, rdb, cfg.CatalogCacheTTL, logger)

	store, err := analytics.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize analytics store", zap.Error(err))
	}
	defer store.Close()

	// A broker outage must not take the API down: the producer degrades and
	// ingestion endpoints keep answering 200 while events are dropped.
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaClientID, logger)
	if err := producer.Connect(); err != nil {
		logger.Warn("Kafka unavailable, ingestion degraded", zap.Error(err))
	}
	defer producer.Close()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, repo, store, logger)
	if err != nil {
		logger.Warn("Kafka consumer unavailable, analytics ingestion paused", zap.Error(err))
	} else {
		go func() {
			if err := consumer.Run(consumerCtx); err != nil && consumerCtx.Err() == nil {
				logger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	eventHandler := handlers.NewEventHandler(producer, logger)
	dashboardHandler := handlers.NewDashboardHandler(store, logger)

	router.POST("/view-product", eventHandler.ViewProduct)
	router.POST("/add-cart", eventHandler.AddToCart)
	router.POST("/place-order", eventHandler.PlaceOrder)
	router.GET("/dashboard", dashboardHandler.GetDashboard)
	router.GET("/health", eventHandler.Health)
	router.GET("/metrics", middleware.PrometheusHandler())

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("addr", cfg.ListenAddr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// The process terminates unconditionally once the grace period elapses.
	forceExit := time.AfterFunc(cfg.ShutdownGrace, func() {
		logger.Error("Could not close connections in time, forcefully shutting down")
		os.Exit(1)
	})
	defer forceExit.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	// In-flight consumer work may be abandoned safely: uncommitted offsets
	// are redelivered on the next start.
	stopConsumer()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("Failed to close consumer group", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
