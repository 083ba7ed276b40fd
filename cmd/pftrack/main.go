package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/config"
	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/handler"
	"github.com/pftrack/pftrack/internal/infra/cache"
	"github.com/pftrack/pftrack/internal/infra/observability"
	"github.com/pftrack/pftrack/internal/infra/resilience"
	"github.com/pftrack/pftrack/internal/ingest"
	"github.com/pftrack/pftrack/internal/notify"
	"github.com/pftrack/pftrack/internal/port"
	"github.com/pftrack/pftrack/internal/rules"
	"github.com/pftrack/pftrack/internal/schedule"
	"github.com/pftrack/pftrack/internal/service"
	"github.com/pftrack/pftrack/internal/store"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_dir", cfg.DataDir),
		zap.String("report_dir", cfg.ReportDir),
		zap.Bool("webhook_enabled", cfg.WebhookURL != ""),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "pftrack")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Rules, budgets, stores ---
	ruleSet, err := rules.LoadWithOverlay(cfg.RulesPath, cfg.RulesOverlayPath)
	if err != nil {
		logger.Fatal("failed to load rules", zap.Error(err))
	}
	logger.Info("rules loaded", zap.Int("categories", len(ruleSet.Categories())))

	budgets, err := budget.Load(cfg.BudgetsPath)
	if err != nil {
		logger.Fatal("failed to load budgets", zap.Error(err))
	}

	manualStore, err := store.OpenManualStore(cfg.ManualPath, logger)
	if err != nil {
		logger.Fatal("failed to open manual transaction store", zap.Error(err))
	}

	fileStore := store.NewFileStore(cfg.DataDir, ingest.NewParser(logger), logger)

	// --- Alert sink ---
	var sink port.AlertSink
	if cfg.WebhookURL != "" {
		sink = notify.NewWebhookClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.WebhookURL,
			resilience.NewCircuitBreaker("webhook"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		logger.Info("alert webhook enabled")
	}

	// --- Services ---
	svc := service.NewFinanceService(
		fileStore,
		manualStore,
		rules.NewClassifier(ruleSet),
		budgets,
		sink,
		cfg.ReportDir,
		cache.New[[]*domain.Transaction](cfg.CacheTTL),
		metrics,
		logger,
	)

	var authSvc *service.AuthService
	if cfg.APIPasswordHash != "" {
		authSvc = service.NewAuthService(cfg.APIPasswordHash, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
		logger.Info("auth service enabled")
	} else {
		logger.Warn("auth: API_PASSWORD_HASH not set, API is unprotected")
	}

	// --- Background sweep ---
	var sched *schedule.Scheduler
	if cfg.RefreshSchedule != "" {
		sched = schedule.New(svc, logger)
		if err := sched.Start(cfg.RefreshSchedule); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	// --- Router ---
	router := handler.NewRouter(svc, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
