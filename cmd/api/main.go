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

	"sadad-payment-service/config"
	"sadad-payment-service/internal/adapter/gateway"
	httpHandler "sadad-payment-service/internal/adapter/http/handler"
	pgStorage "sadad-payment-service/internal/adapter/storage/postgres"
	redisStorage "sadad-payment-service/internal/adapter/storage/redis"
	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/internal/service"
	"sadad-payment-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("SPS_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("sadad_test_mode", cfg.Sadad.TestMode).
		Msg("Starting SADAD Payment Service")

	if !cfg.Sadad.Configured() {
		log.Warn().Msg("SADAD merchant credentials missing; initiation will answer with a configuration error")
	}
	if cfg.Sadad.SkipIPVerification {
		log.Warn().Bool("security_event", true).Msg("SADAD callback IP verification is bypassed")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	txRepo := pgStorage.NewTransactionRepo(pool)
	bookingRepo := pgStorage.NewBookingRepo(pool)
	productRepo := pgStorage.NewProductOrderRepo(pool)
	notifRepo := pgStorage.NewNotificationRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	replayCache := redisStorage.NewIdempotencyCache(rdb)
	initiationLock := redisStorage.NewInitiationLock(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	checksumSvc := service.NewChecksumService(cfg.Sadad.MerchantID, cfg.Sadad.SecretKey, nil)
	auditSvc := service.NewAuditService(auditRepo, log)
	codes := domain.DefaultGatewayCodes()

	var verifier ports.GatewayVerifier
	if cfg.Sadad.VerifyURL() != "" {
		verifier = gateway.NewSadadClient(cfg.Sadad, logger.Component(log, "sadad_client"))
	} else {
		log.Warn().Msg("SADAD verification URL not configured; completed callbacks are accepted unverified")
	}

	var tokenSvc ports.TokenService
	if cfg.Auth.Enabled() {
		tokenSvc = service.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	// Initialize business services, one per source kind
	initLog := logger.Component(log, "initiation")
	callbackLog := logger.Component(log, "callback")
	bookingInit := service.NewInitiationService(cfg.Sadad, bookingRepo, txRepo, transactor, checksumSvc, auditSvc, initiationLock, initLog)
	productInit := service.NewInitiationService(cfg.Sadad, productRepo, txRepo, transactor, checksumSvc, auditSvc, initiationLock, initLog)
	bookingCallback := service.NewCallbackService(cfg.Sadad, codes, bookingRepo, txRepo, notifRepo, transactor,
		checksumSvc, verifier, replayCache, auditSvc, callbackLog)
	productCallback := service.NewCallbackService(cfg.Sadad, codes, productRepo, txRepo, notifRepo, transactor,
		checksumSvc, verifier, replayCache, auditSvc, callbackLog)
	querySvc := service.NewPaymentQueryService(txRepo)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		BookingInitiation: bookingInit,
		ProductInitiation: productInit,
		BookingCallback:   bookingCallback,
		ProductCallback:   productCallback,
		PaymentQuery:      querySvc,
		TokenSvc:          tokenSvc,
		RateLimiter:       rateLimitStore,
		RateLimit:         cfg.RateLimit,
		HealthCheckers:    []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:          auditSvc,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		TrustedProxies:    cfg.Server.TrustedProxies,
		Logger:            log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
