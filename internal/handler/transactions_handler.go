package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/service"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		f, err := parseFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txns, err := svc.Transactions(ctx, f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("transactions.count", len(txns)))

		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": txns,
			"count":        len(txns),
		})
	}
}

func refreshHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/refresh")
		defer span.End()

		count, err := svc.Refresh(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": count})
	}
}

func duplicatesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/duplicates")
		defer span.End()

		pairs, err := svc.Duplicates(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"duplicates": pairs,
			"count":      len(pairs),
		})
	}
}

// mergeDuplicatesRequest names the surviving entry first.
type mergeDuplicatesRequest struct {
	FirstID  string `json:"first_id"`
	SecondID string `json:"second_id"`
}

func mergeDuplicatesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/duplicates/merge")
		defer span.End()

		var req mergeDuplicatesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FirstID == "" || req.SecondID == "" {
			writeError(w, http.StatusBadRequest, "first_id and second_id are required")
			return
		}

		merged, err := svc.MergeDuplicatePair(ctx, req.FirstID, req.SecondID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, merged)
	}
}

// ============================================================
// Manual entries
// ============================================================

// manualTransactionRequest is the payload for creating or updating a
// manual entry.
type manualTransactionRequest struct {
	Date        string   `json:"date"` // YYYY-MM-DD
	AccountKind string   `json:"account_kind"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

func (req *manualTransactionRequest) toTransaction() (*domain.Transaction, error) {
	date, err := time.Parse(dateParamLayout, req.Date)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	kind := domain.AccountKind(req.AccountKind)
	if kind == "" {
		kind = domain.AccountChecking
	}

	tx, err := domain.NewTransaction(date, kind, req.Description, req.Amount)
	if err != nil {
		return nil, err
	}
	if req.Category != "" {
		tx.Category = req.Category
	}
	tx.Subcategory = req.Subcategory
	tx.Tags = req.Tags
	tx.Notes = req.Notes
	return tx, nil
}

func listManualHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/manual")
		defer span.End()

		txns, err := svc.ListManualTransactions(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": txns,
			"count":        len(txns),
		})
	}
}

func addManualHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/manual")
		defer span.End()

		var req manualTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := req.toTransaction()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		added, err := svc.AddManualTransaction(ctx, tx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, added)
	}
}

func getManualHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/manual/{id}")
		defer span.End()

		tx, err := svc.GetManualTransaction(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func updateManualHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/manual/{id}")
		defer span.End()

		var req manualTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := req.toTransaction()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		tx.ID = chi.URLParam(r, "id")

		updated, err := svc.UpdateManualTransaction(ctx, tx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteManualHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/manual/{id}")
		defer span.End()

		if err := svc.DeleteManualTransaction(ctx, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Rules inspection
// ============================================================

func rulesHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/rules")
		defer span.End()

		set := svc.Rules()
		writeJSON(w, http.StatusOK, map[string]any{
			"categories": set.Categories(),
			"rules":      set.Rules(),
			"auto_tags":  set.TagRules(),
		})
	}
}

// ============================================================
// Reports
// ============================================================

func generateReportsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		paths, err := svc.GenerateReports(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": paths})
	}
}
