package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/mercato/internal"
	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/email"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/handler"
	"github.com/dukerupert/mercato/internal/handler/api"
	"github.com/dukerupert/mercato/internal/handler/webhook"
	"github.com/dukerupert/mercato/internal/middleware"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/dukerupert/mercato/internal/router"
	"github.com/dukerupert/mercato/internal/routes"
	"github.com/dukerupert/mercato/internal/service"
	"github.com/dukerupert/mercato/internal/telemetry"
	"github.com/dukerupert/mercato/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
		Debug:       cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return err
	}
	defer flushSentry()

	// Run migrations over database/sql, which goose requires
	logger.Info("Running database migrations...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := internal.RunMigrations(sqlDB, logger); err != nil {
		sqlDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	sqlDB.Close()

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics("mercato", registry)
	httpMetrics := middleware.NewMetrics("mercato", registry)

	// Initialize Stripe billing provider
	stripeConfig := billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		MaxRetries:    int(cfg.Stripe.MaxRetries),
		Timeout:       cfg.Stripe.Timeout,
	}
	provider, err := billing.NewStripeProvider(stripeConfig, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Stripe provider: %w", err)
	}
	logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())

	// Domain events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.NatsURL != "" {
		natsPublisher, err := events.Connect(cfg.Events.NatsURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		publisher = natsPublisher
		logger.Info("Publishing domain events to NATS", "subject_prefix", cfg.Events.SubjectPrefix)
	}
	defer publisher.Close()

	// Checkout emails
	var mailer service.Mailer
	if cfg.Email.SMTPHost != "" {
		sender := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     int(cfg.Email.SMTPPort),
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.FromAddress,
		}, logger)
		emailService, err := email.NewService(sender, cfg.Email.FromAddress, cfg.Email.FromName)
		if err != nil {
			return err
		}
		mailer = emailService
		logger.Info("Checkout emails enabled", "smtp_host", cfg.Email.SMTPHost)
	}

	// Initialize services
	services := service.NewServices(service.Deps{
		Repo:     repository.New(pool),
		Tx:       postgres.NewTxManager(pool, logger),
		Provider: provider,
		Events:   publisher,
		Metrics:  metrics,
		Logger:   logger,
		Mailer:   mailer,
	}, cfg.Catalog.TxTimeout)

	stripeWebhook := webhook.NewStripeHandler(provider, services.Checkouts, services.Subscriptions, metrics, logger,
		webhook.StripeWebhookConfig{WebhookSecret: cfg.Stripe.WebhookSecret})

	// Create router and register routes
	r := router.New(
		telemetry.SentryMiddleware(),
		middleware.Recovery,
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		httpMetrics.Middleware,
		middleware.AccessLog,
	)
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		StripeHandler: stripeWebhook.HandleWebhook,
	})
	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Handler: api.NewHandler(services, logger),
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Health:  handler.Health(pool),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	if cfg.Worker.Enabled {
		sweeper := worker.NewWorker(services.Checkouts, worker.Config{
			PollInterval: cfg.Worker.SweepInterval,
			StaleAfter:   cfg.Worker.StaleAfter,
			BatchSize:    int(cfg.Worker.BatchSize),
		}, logger)
		go func() {
			if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("checkout sweeper stopped", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "base_url", cfg.BaseURL)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
