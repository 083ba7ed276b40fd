package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

const dateParamLayout = "2006-01-02"

// parseRange reads optional ?start= and ?end= date bounds.
func parseRange(r *http.Request) (analyze.Range, error) {
	var out analyze.Range
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(dateParamLayout, v)
		if err != nil {
			return out, &domain.ErrValidation{Field: "start", Message: "must be YYYY-MM-DD"}
		}
		out.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(dateParamLayout, v)
		if err != nil {
			return out, &domain.ErrValidation{Field: "end", Message: "must be YYYY-MM-DD"}
		}
		out.End = t
	}
	return out, nil
}

// parseFilter builds a transaction filter from query parameters.
func parseFilter(r *http.Request) (analyze.Filter, error) {
	rng, err := parseRange(r)
	if err != nil {
		return analyze.Filter{}, err
	}

	q := r.URL.Query()
	f := analyze.Filter{
		Category:    q.Get("category"),
		AccountKind: domain.AccountKind(q.Get("account_kind")),
		Merchant:    q.Get("merchant"),
		Search:      q.Get("search"),
		Tag:         q.Get("tag"),
		Start:       rng.Start,
		End:         rng.End,
	}
	if v := q.Get("min_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, &domain.ErrValidation{Field: "min_amount", Message: "must be a number"}
		}
		f.MinAmount = amount
	}
	if v := q.Get("max_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, &domain.ErrValidation{Field: "max_amount", Message: "must be a number"}
		}
		f.MaxAmount = amount
	}
	return f, nil
}

// parseIntParam reads a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var config *domain.ErrConfig
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var duplicate *domain.ErrDuplicate
	var unauthorized *domain.ErrUnauthorized
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &config):
		logger.Error("configuration error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &duplicate):
		logger.Debug("duplicate resource", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &external):
		logger.Error("external service failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
