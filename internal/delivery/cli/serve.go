package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order_form/config"
	"order_form/internal/delivery"
	grpcDelivery "order_form/internal/delivery/grpc"
	"order_form/internal/domain"
	"order_form/internal/repository"
	"order_form/internal/usecase"
	"order_form/pkg/db"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve order-form sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := setupLogger("info", true)
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		logger.Errorf("Configuration error: %v", err)
		return err
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Invalid LOG_LEVEL '%s', keeping %s", cfg.LogLevel, logger.GetLevel())
	}
	logger.Info("Starting Order Form Service...")

	client, err := newBackendClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	healthReporter := grpcDelivery.NewHealthReporter(logger)
	bootCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	if err := client.Bootstrap(bootCtx); err != nil {
		logger.Warnf("Backend bootstrap failed, health stays NOT_SERVING until a catalog loads: %v", err)
	} else {
		healthReporter.MarkServing()
	}
	cancel()

	journal := domain.SubmissionRepository(repository.NewNoopSubmissionRepository())
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		pgJournal := repository.NewPostgresSubmissionRepository(database, logger)
		if err := pgJournal.EnsureSchema(ctx); err != nil {
			return err
		}
		journal = pgJournal
		logger.Info("Database connection established, submission journal enabled.")
	}

	sessions := usecase.NewSessionStore(client, journal, healthReporter, logger,
		usecase.WithIdleTTL(cfg.SessionIdleTTL), usecase.WithMaxSessions(cfg.MaxSessions))
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sessions.RunSweeper(sweepCtx, max(cfg.SessionIdleTTL/2, time.Second))
	handler := delivery.NewFormHandler(sessions, usecase.NewPopovers(), journal, logger)
	router := newRouter(handler, cfg, logger)

	lis, err := net.Listen("tcp", cfg.GrpcPort)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %s: %w", cfg.GrpcPort, err)
	}
	grpcServer := grpc.NewServer()
	healthReporter.Register(grpcServer)
	go func() {
		logger.Infof("gRPC health server listening on %s", cfg.GrpcPort)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Errorf("gRPC server stopped with error: %v", err)
		}
	}()

	srv := &http.Server{Addr: cfg.HTTPPort, Handler: router}
	go func() {
		logger.Infof("Starting HTTP server on port %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server on port %s: %v", cfg.HTTPPort, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Warn("Shutdown signal received...")
	case <-ctx.Done():
	}

	healthReporter.Shutdown()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown failed: %v", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Order Form Service shut down gracefully.")
	return nil
}

func newRouter(handler *delivery.FormHandler, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.Use(delivery.RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
		corsCfg.AddAllowHeaders("X-CSRFToken")
		router.Use(cors.New(corsCfg))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.RegisterRoutes(router)
	return router
}
