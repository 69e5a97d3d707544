package main

// @title           Notify Service API
// @version         1.0
// @description     Real-time notification fan-out service for the robot training platform
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notify-service/internal/adapters/kafka"
	"notify-service/internal/api/routes"
	"notify-service/internal/config"
	"notify-service/internal/database"
	"notify-service/internal/services"
	"notify-service/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting notification server")

	// Redis backs the durable offline-queue mirror. If it is unreachable the
	// queue degrades to in-memory-only; that is not fatal.
	var store websocket.QueueStore
	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Warn("Redis not available, offline queue is in-memory only", "error", err)
	} else {
		defer redisClient.Close()
		store = services.NewRedisQueueStore(redisClient)
	}

	// Notification dispatcher owns all connection, topic and queue state
	dispatcher := websocket.NewDispatcher(cfg.Notify.QueueLimit, store)

	// Heartbeat broadcast loop
	heartbeat := websocket.NewHeartbeat(dispatcher, cfg.Notify.HeartbeatInterval)
	heartbeat.Start()

	// Optional broker bridge: sibling services publish events through Kafka
	kafkaCtx, kafkaCancel := context.WithCancel(context.Background())
	defer kafkaCancel()
	if len(cfg.Kafka.Brokers) > 0 {
		consumerGroup, err := kafka.InitKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Group)
		if err != nil {
			slog.Error("Failed to create Kafka consumer, broker bridge disabled", "error", err)
		} else {
			defer consumerGroup.Close()
			go kafka.Run(kafkaCtx, consumerGroup, cfg.Kafka.Topic, kafka.NewEventConsumer(dispatcher))
			slog.Info("Kafka event bridge started", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
		}
	}

	// Initialize router with all dependencies
	router := routes.NewRouter(dispatcher, cfg.JWT.Secret)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop background loops, then close every connection and flush the queue
	heartbeat.Stop()
	kafkaCancel()
	dispatcher.Shutdown(ctx)

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
