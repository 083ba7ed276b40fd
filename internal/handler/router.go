package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/infra/observability"
	"github.com/pftrack/pftrack/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// When authSvc is nil the API runs unauthenticated, which is the
// default for local single-user setups.
func NewRouter(svc *service.FinanceService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Authentication
		r.Route("/auth", func(r chi.Router) {
			if authSvc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "auth disabled: no password configured")
				}))
				return
			}
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/logout", authLogoutHandler(authSvc, logger))
			})
		})

		// Everything else is protected when auth is configured.
		r.Group(func(r chi.Router) {
			if authSvc != nil {
				r.Use(JWTAuthMiddleware(authSvc, logger))
			}

			// Transactions
			r.Get("/transactions", listTransactionsHandler(svc, logger))
			r.Post("/transactions/refresh", refreshHandler(svc, logger))
			r.Get("/transactions/duplicates", duplicatesHandler(svc, logger))
			r.Post("/transactions/duplicates/merge", mergeDuplicatesHandler(svc, logger))

			// Manual entries
			r.Get("/transactions/manual", listManualHandler(svc, logger))
			r.Post("/transactions/manual", addManualHandler(svc, logger))
			r.Get("/transactions/manual/{id}", getManualHandler(svc, logger))
			r.Put("/transactions/manual/{id}", updateManualHandler(svc, logger))
			r.Delete("/transactions/manual/{id}", deleteManualHandler(svc, logger))

			// Analysis
			r.Get("/summary/monthly", monthlySummariesHandler(svc, logger))
			r.Get("/summary/categories", categoryTotalsHandler(svc, logger))
			r.Get("/summary/trends", spendingTrendsHandler(svc, logger))
			r.Get("/summary/merchants", topMerchantsHandler(svc, logger))
			r.Get("/summary/income-vs-expenses", incomeVsExpensesHandler(svc, logger))
			r.Get("/summary/forecast", forecastHandler(svc, logger))
			r.Get("/summary/velocity", velocityHandler(svc, logger))
			r.Get("/summary/seasonal", seasonalHandler(svc, logger))
			r.Get("/summary/compare", compareCategoriesHandler(svc, logger))

			// Budgets and alerts
			r.Get("/budgets", budgetComparisonHandler(svc, logger))
			r.Get("/alerts", alertsHandler(svc, logger))
			r.Post("/alerts/push", pushAlertsHandler(svc, logger))

			// Recurring charges
			r.Get("/recurring", recurringHandler(svc, logger))
			r.Get("/recurring/predictions", predictionsHandler(svc, logger))
			r.Get("/recurring/missed", missedChargesHandler(svc, logger))

			// Reports
			r.Post("/reports", generateReportsHandler(svc, logger))

			// Rules inspection
			r.Get("/rules", rulesHandler(svc, logger))

			// Metrics summary
			r.Get("/metrics/summary", metricsSummaryHandler(metrics))
		})
	})

	return r
}

// healthzHandler verifies the data sources can be read.
func healthzHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /healthz")
		defer span.End()

		start := time.Now()
		txns, err := svc.Transactions(ctx, analyze.Filter{})
		status := "healthy"
		httpStatus := http.StatusOK
		if err != nil {
			logger.Warn("health check failed", zap.Error(err))
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		writeJSON(w, httpStatus, map[string]any{
			"status":       status,
			"transactions": len(txns),
			"latency_ms":   time.Since(start).Milliseconds(),
			"checked_at":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSnapshot())
	}
}
