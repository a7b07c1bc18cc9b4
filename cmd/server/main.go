package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-quote-approvals/internal/client"
	"github.com/pesio-ai/be-quote-approvals/internal/config"
	"github.com/pesio-ai/be-quote-approvals/internal/database"
	"github.com/pesio-ai/be-quote-approvals/internal/handler"
	"github.com/pesio-ai/be-quote-approvals/internal/logger"
	"github.com/pesio-ai/be-quote-approvals/internal/middleware"
	"github.com/pesio-ai/be-quote-approvals/internal/preview"
	"github.com/pesio-ai/be-quote-approvals/internal/repository"
	"github.com/pesio-ai/be-quote-approvals/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("environment", cfg.Service.Environment).
		Str("step_source", cfg.Preview.StepSource).
		Msg("Starting Quote Approvals Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize record sources
	var (
		steps   service.StepSource
		answers preview.AnswerFetcher
	)
	switch cfg.Preview.StepSource {
	case config.StepSourceRecordsAPI:
		records := client.NewRecordsClient(cfg.RecordsAPI.BaseURL, cfg.RecordsAPI.Token, cfg.RecordsAPI.Timeout)
		steps, answers = records, records
		log.Info().Str("records_api", cfg.RecordsAPI.BaseURL).Msg("Using records API for approval steps")
	default:
		steps = repository.NewApprovalStepsRepository(db)
		answers = repository.NewApprovalAnswersRepository(db)
	}

	var (
		answerCache handler.AnswerCache
		redisCheck  handler.HealthChecker
	)
	if cfg.Redis.URL != "" {
		rdb, err := client.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		cached := client.NewCachedAnswerSource(answers, rdb, cfg.Redis.KeyPrefix, cfg.Redis.AnswerTTL, log.Component("answer-cache"))
		answers, answerCache, redisCheck = cached, cached, cached
		log.Info().Dur("ttl", cfg.Redis.AnswerTTL).Msg("Approval answer cache enabled")
	}

	// Initialize services
	colors := preview.NewColorResolver(preview.ColorConfig{
		StatusColorMap: cfg.Preview.StatusColorMap,
		Overrides: preview.StatusColors{
			Approved: cfg.Preview.ApprovedColor,
			Rejected: cfg.Preview.RejectedColor,
			Pending:  cfg.Preview.PendingColor,
			NA:       cfg.Preview.NAColor,
		},
	})
	previewService := service.NewApprovalPreviewService(
		steps,
		answers,
		preview.NewEnricher(colors, cfg.Preview.IconBasePath),
		preview.TableOptions{MaxLevel: cfg.Preview.MaxLevel, DividerLevel: cfg.Preview.DividerLevel},
		log.Component("approval-preview"),
	)
	boards := service.NewBoards(previewService, service.BoardsConfig{
		MaxBoards: cfg.Preview.MaxBoards,
		IdleTTL:   cfg.Preview.BoardIdleTTL,
	}, log.Component("board"))
	lineItemService := service.NewLineItemService(repository.NewQuoteLineItemRepository(db), log.Component("line-items"))

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(boards, previewService, lineItemService, answerCache, log)
	httpHandler.AddHealthCheck("postgres", db)
	if redisCheck != nil {
		httpHandler.AddHealthCheck("redis", redisCheck)
	}

	h := middleware.Chain(httpHandler.Routes(),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handler.UnaryRecovery(log),
		handler.UnaryLogging(log),
	))
	handler.RegisterApprovalPreviewServer(grpcServer, handler.NewGRPCHandler(boards, previewService, log))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.ApprovalPreviewServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gRPC listener")
	}

	go func() {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	grpcServer.GracefulStop()

	log.Info().Msg("Server stopped")
}
