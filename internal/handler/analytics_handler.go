package handler

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/service"
)

// ============================================================
// Summaries
// ============================================================

func monthlySummariesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/monthly")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summaries, err := svc.MonthlySummaries(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"months": summaries})
	}
}

func categoryTotalsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/categories")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		totals, err := svc.CategoryTotals(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": totals})
	}
}

func spendingTrendsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/trends")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		trends, err := svc.SpendingTrends(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
	}
}

func topMerchantsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/merchants")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		limit := parseIntParam(r, "limit", 20)

		merchants, err := svc.TopMerchants(ctx, limit, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"merchants": merchants})
	}
}

func incomeVsExpensesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/income-vs-expenses")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		overview, err := svc.IncomeVsExpenses(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func forecastHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/forecast")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		category := r.URL.Query().Get("category")
		months := parseIntParam(r, "months", 3)

		points, err := svc.Forecast(ctx, category, months, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"forecast": points})
	}
}

func velocityHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/velocity")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		category := r.URL.Query().Get("category")

		report, err := svc.SpendingVelocity(ctx, category, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func seasonalHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/seasonal")
		defer span.End()

		patterns, err := svc.SeasonalPatterns(ctx, r.URL.Query().Get("category"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns})
	}
}

func compareCategoriesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/compare")
		defer span.End()

		periodA, err := parseNamedRange(r, "a_start", "a_end")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		periodB, err := parseNamedRange(r, "b_start", "b_end")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var categories []string
		if raw := r.URL.Query().Get("categories"); raw != "" {
			for _, c := range strings.Split(raw, ",") {
				if c = strings.TrimSpace(c); c != "" {
					categories = append(categories, c)
				}
			}
		}

		comparisons, err := svc.CompareCategories(ctx, categories, periodA, periodB)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comparisons": comparisons})
	}
}

func parseNamedRange(r *http.Request, startParam, endParam string) (analyze.Range, error) {
	var rng analyze.Range
	if raw := r.URL.Query().Get(startParam); raw != "" {
		start, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return rng, &domain.ErrValidation{Field: startParam, Message: "must be YYYY-MM-DD"}
		}
		rng.Start = start
	}
	if raw := r.URL.Query().Get(endParam); raw != "" {
		end, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return rng, &domain.ErrValidation{Field: endParam, Message: "must be YYYY-MM-DD"}
		}
		rng.End = end
	}
	return rng, nil
}

// ============================================================
// Budgets and alerts
// ============================================================

func budgetComparisonHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		comparisons, err := svc.BudgetVsActual(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"budgets": comparisons})
	}
}

func alertsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/alerts")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		alerts, err := svc.Alerts(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"alerts": alerts,
			"count":  len(alerts),
		})
	}
}

func pushAlertsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/alerts/push")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		alerts, err := svc.PushAlerts(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"delivered": len(alerts),
			"alerts":    alerts,
		})
	}
}

// ============================================================
// Recurring charges
// ============================================================

func recurringHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recurring")
		defer span.End()

		patterns, err := svc.RecurringCharges(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"recurring": patterns,
			"count":     len(patterns),
		})
	}
}

func predictionsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recurring/predictions")
		defer span.End()

		months := parseIntParam(r, "months", 1)

		predictions, err := svc.Predictions(ctx, months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
	}
}

func missedChargesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recurring/missed")
		defer span.End()

		missed, err := svc.MissedCharges(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"missed": missed,
			"count":  len(missed),
		})
	}
}
