package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nimex/internal/app/escrow"
	"nimex/internal/app/webhook"
	"nimex/internal/config"
	escrowops_http "nimex/internal/handler/http/escrowops"
	webhook_http "nimex/internal/handler/http/webhook"
	"nimex/internal/infrastructure/database"
	kafka_infra "nimex/internal/infrastructure/kafka"
	"nimex/internal/outbox"
	"nimex/internal/repository/audit_repo"
	"nimex/internal/repository/escrow_repo"
	"nimex/internal/repository/eventlog_repo"
	"nimex/internal/repository/order_repo"
	"nimex/internal/repository/outbox_repo"
	"nimex/internal/repository/payout_repo"
	"nimex/internal/repository/profile_repo"
	"nimex/internal/repository/vendor_repo"
	"nimex/internal/repository/wallet_repo"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Settlement service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	m, err := migrate.New(
		"file://migrations",
		cfg.GetDBMigrationConnectionString(),
	)
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	topicCtx, topicCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer topicCancel()
	if err := kafka_infra.EnsureTopics(topicCtx, cfg.GetKafkaBrokers(), []string{cfg.KafkaSettlementEventsTopic}, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	escrowRepository := escrow_repo.NewEscrowRepository(db)
	orderRepository := order_repo.NewOrderRepository(db)
	vendorRepository := vendor_repo.NewVendorRepository(db)
	walletRepository := wallet_repo.NewWalletRepository(db)
	payoutRepository := payout_repo.NewPayoutRepository(db)
	profileRepository := profile_repo.NewProfileRepository(db)
	auditRepository := audit_repo.NewAuditRepository(db)
	eventLogRepository := eventlog_repo.NewEventLogRepository(db)
	outboxRepository := outbox_repo.NewOutboxRepository(db)

	escrowService := escrow.NewEscrowService(
		db,
		escrowRepository,
		orderRepository,
		vendorRepository,
		walletRepository,
		outboxRepository,
		appLogger.With(zap.String("component", "EscrowService")),
	)
	appLogger.Info("Escrow Service initialized.")

	webhookService := webhook.NewWebhookService(
		db,
		escrowService,
		orderRepository,
		vendorRepository,
		payoutRepository,
		profileRepository,
		auditRepository,
		eventLogRepository,
		outboxRepository,
		appLogger.With(zap.String("component", "WebhookService")),
	)
	appLogger.Info("Webhook Service initialized.")

	verifier := webhook.NewSignatureVerifier(cfg.PaystackWebhookSecret)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Settlement service is healthy!"))
	})
	webhook_http.RegisterRoutes(router, webhookService, verifier, cfg.WebhookProcessTimeout, appLogger.With(zap.String("component", "HTTPHandler")))
	escrowops_http.RegisterRoutes(router, escrowService, appLogger.With(zap.String("component", "HTTPHandler")))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	appLogger.Info("HTTP server configured.")

	kafkaProducer := kafka_infra.NewProducer(
		cfg.GetKafkaBrokers(),
		cfg.KafkaSettlementEventsTopic,
		appLogger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()
	appLogger.Info("Kafka producer created successfully.")

	outboxProcessor := outbox.NewProcessor(
		db,
		outboxRepository,
		kafkaProducer,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)
	appLogger.Info("Outbox Processor initialized.")

	ctxMain, cancelMain := context.WithCancel(context.Background())

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		outboxProcessor.Start(ctxMain)
		appLogger.Info("Outbox Processor stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	appLogger.Info("Application gracefully shut down.")
}
