package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/access"
	"github.com/iyhunko/catalog-admin/internal/config"
	"github.com/iyhunko/catalog-admin/internal/console"
	httpAPI "github.com/iyhunko/catalog-admin/internal/http"
	"github.com/iyhunko/catalog-admin/internal/http/controller"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/identity"
	"github.com/iyhunko/catalog-admin/internal/logger"
	"github.com/iyhunko/catalog-admin/internal/metrics"
	"github.com/iyhunko/catalog-admin/internal/repository/sql"
	"github.com/iyhunko/catalog-admin/internal/service"
	sqspkg "github.com/iyhunko/catalog-admin/internal/sqs"
	"github.com/iyhunko/catalog-admin/internal/storage"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.LogLevel)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	metrics.StartMetricsServer(ctx, conf)

	// Create repositories
	productRepository := sql.NewProductRepository(db)
	eventRepository := sql.NewEventRepository(db)
	userRepository := sql.NewUserRepository(db)
	accountRepository := sql.NewAccountRepository(db)
	policyRepository := sql.NewMarginPolicyRepository(db)
	transactionalRepository := sql.NewTransactionalRepository(db)

	// Identity
	gate := access.NewGate(userRepository, conf.Auth.DenyWithoutProfile)
	provider := identity.NewLocalProvider(accountRepository, conf.Auth.JWTSecret, conf.Auth.TokenTTL)
	broadcaster := identity.NewBroadcaster()
	identityService := identity.NewService(provider, userRepository, gate, broadcaster)
	err = identityService.EnsureSuperAdmin(ctx, conf.Auth.SuperAdminEmail, conf.Auth.SuperAdminPassword)
	handleErr("bootstrapping super admin", err)

	awsCfg, err := sqspkg.LoadAWSConfig(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("loading AWS config", err)

	// Catalog services
	catalogService := service.NewCatalogService(productRepository, transactionalRepository, policyRepository)
	marginService := service.NewMarginService(policyRepository, catalogService)

	var source service.ObjectSource
	if conf.AWS.ImportBucket != "" {
		source = storage.NewS3Source(storage.NewS3Client(awsCfg), conf.AWS.ImportBucket)
		slog.Info("Object imports enabled", slog.String("bucket", conf.AWS.ImportBucket))
	}
	importService := service.NewImportService(catalogService, source, conf.Import.Concurrency)

	store := console.NewStore(catalogService, marginService, identityService)
	changes, unsubscribe := broadcaster.Subscribe()
	defer unsubscribe()
	go store.Run(ctx, changes)

	// Start outbox worker to process pending events every 2 seconds
	sqsPublisher := sqspkg.NewPublisher(sqs.NewFromConfig(awsCfg), conf.AWS.SQSQueueURL)
	outboxWorker := service.NewOutboxWorker(eventRepository, eventRepository, sqsPublisher, 2*time.Second)
	go outboxWorker.Start(ctx)

	// Start HTTP server
	mw := middleware.New(identityService).WithBatchTimeout(conf.HTTPServer.BatchTimeout)
	router := httpAPI.InitRouter(gin.New(), mw, httpAPI.Controllers{
		General:  controller.New(db),
		Auth:     controller.NewAuthController(identityService, store),
		Products: controller.NewProductController(catalogService, store),
		Imports:  controller.NewImportController(importService, store),
		Margins:  controller.NewMarginController(marginService, store),
		Admins:   controller.NewAdminController(identityService, store),
	})
	// Import and margin application routes lift these timeouts per request.
	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to stop HTTP server", slog.Any("err", err))
	}
	outboxWorker.Stop()
	cancel()
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
