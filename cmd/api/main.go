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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/namdevyakhya-17/psycare/cmd/mainconfig"
	"github.com/namdevyakhya-17/psycare/internal/api/router"
	"github.com/namdevyakhya-17/psycare/internal/app/bootstrap"
	"github.com/namdevyakhya-17/psycare/internal/chatbot"
	appconfig "github.com/namdevyakhya-17/psycare/internal/config"
	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/crisis"
	"github.com/namdevyakhya-17/psycare/internal/intent"
	"github.com/namdevyakhya-17/psycare/internal/observability/metrics"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting psycare API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// setupMetrics registers chat metrics on a fresh registry and returns the
// handler that exposes it.
func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}

// buildServer wires every collaborator of POST /api/chat. The returned
// cleanup closes connections in reverse order of creation.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	metricsHandler, chatMetrics := setupMetrics()

	db, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if db != nil {
		closers = append(closers, db.Close)
	}
	stores := bootstrap.BuildStores(db, logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("load aws config: %w", err)
	}

	reply, closeReply, err := bootstrap.BuildReplyClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	closers = append(closers, func() { _ = closeReply() })

	localizer := bootstrap.BuildLocalizer(ctx, cfg, redisClient, chatMetrics, logger)

	detector := intent.NewDetector(
		bootstrap.BuildCrisisClassifier(cfg, reply, logger),
		cfg.ProviderTimeout,
		chatMetrics,
		logger.Component("intent"),
	)

	escalator := crisis.NewOrchestrator(
		stores.Turns,
		stores.Directory,
		bootstrap.BuildAlertSender(cfg, awsCfg, logger),
		logger.Component("crisis"),
		crisis.WithLocalizer(localizer),
		crisis.WithStepTimeout(cfg.ProviderTimeout),
		crisis.WithMetrics(chatMetrics),
	)

	pipeline := conversation.NewPipeline(
		reply,
		stores.Turns,
		logger.Component("conversation"),
		conversation.WithLocalizer(localizer),
		conversation.WithProviderTimeout(cfg.ProviderTimeout),
		conversation.WithPipelineMetrics(chatMetrics),
	)

	service := chatbot.NewService(chatbot.Deps{
		Booker:    bootstrap.BuildBookingService(cfg, stores, redisClient, chatMetrics, logger.Component("booking")),
		Detector:  detector,
		Escalator: escalator,
		Chat:      pipeline,
		Localizer: localizer,
		Metrics:   chatMetrics,
		Logger:    logger,
	})

	checks := map[string]router.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.Pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; /api/chat will reject every request")
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatbot.NewHandler(service, logger).Chat,
		JWTSecret:          cfg.JWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		HealthChecks:       checks,
	})
	return handler, cleanup, nil
}
