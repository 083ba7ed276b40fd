// Package service provides the business logic layer (use cases).
// FinanceService ties ingestion, classification, analysis, recurring
// detection and alerting together behind one API.
package service

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/alert"
	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/infra/observability"
	"github.com/pftrack/pftrack/internal/port"
	"github.com/pftrack/pftrack/internal/recurring"
	"github.com/pftrack/pftrack/internal/report"
	"github.com/pftrack/pftrack/internal/rules"
	"github.com/pftrack/pftrack/internal/store"
)

var tracer = otel.Tracer("service/finance")

const txCacheKey = "all"

// FinanceService orchestrates the personal finance pipeline.
type FinanceService struct {
	source     port.TransactionSource
	manual     port.ManualTransactions
	classifier *rules.Classifier
	budgets    *budget.Manager
	sink       port.AlertSink
	reportDir  string
	detectOpts recurring.Options
	cache      port.Cache[[]*domain.Transaction]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewFinanceService creates the finance service. The sink may be nil
// when no webhook is configured.
func NewFinanceService(
	source port.TransactionSource,
	manual port.ManualTransactions,
	classifier *rules.Classifier,
	budgets *budget.Manager,
	sink port.AlertSink,
	reportDir string,
	cache port.Cache[[]*domain.Transaction],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *FinanceService {
	return &FinanceService{
		source:     source,
		manual:     manual,
		classifier: classifier,
		budgets:    budgets,
		sink:       sink,
		reportDir:  reportDir,
		detectOpts: recurring.DefaultOptions(),
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Rules exposes the active rule set for inspection endpoints.
func (s *FinanceService) Rules() *rules.Set {
	return s.classifier.Set()
}

// Budgets exposes the loaded budget configuration.
func (s *FinanceService) Budgets() *budget.Manager {
	return s.budgets
}

// load returns the full classified transaction set, serving from cache
// when possible.
func (s *FinanceService) load(ctx context.Context) ([]*domain.Transaction, error) {
	_, span := tracer.Start(ctx, "FinanceService.load")
	defer span.End()

	if cached, ok := s.cache.Get(txCacheKey); ok {
		s.metrics.IncrCacheHit("transactions")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("transactions")

	start := time.Now()
	txns, err := s.source.LoadAll()
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	byKind := make(map[domain.AccountKind]int)
	for _, tx := range txns {
		byKind[tx.AccountKind]++
	}
	for kind, n := range byKind {
		s.metrics.AddRowsIngested(string(kind), n)
	}

	// Manual entries keep the category the user picked; only bank rows
	// go through the classifier.
	s.classifier.ClassifyAll(txns)
	for _, tx := range txns {
		s.metrics.IncrClassified(tx.Category)
	}
	txns = append(txns, s.manual.All()...)

	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	s.cache.Set(txCacheKey, txns)

	s.metrics.IncrRequest("success")
	s.metrics.RecordRequestDuration("load", time.Since(start))
	span.SetAttributes(attribute.Int("transactions.count", len(txns)))
	s.logger.Info("transactions loaded and classified", zap.Int("count", len(txns)))
	return txns, nil
}

// Refresh flushes the cache and reloads everything from disk.
func (s *FinanceService) Refresh(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.Refresh")
	defer span.End()

	s.cache.Flush()
	txns, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(txns), nil
}

// Transactions returns the classified transactions matching the
// filter.
func (s *FinanceService) Transactions(ctx context.Context, f analyze.Filter) ([]*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.Transactions")
	defer span.End()

	txns, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(txns), nil
}

func (s *FinanceService) analyzer(ctx context.Context) (*analyze.Analyzer, error) {
	txns, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return analyze.New(txns), nil
}

// MonthlySummaries returns income/expense totals per month.
func (s *FinanceService) MonthlySummaries(ctx context.Context, r analyze.Range) ([]domain.MonthlySummary, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.MonthlySummaries")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.MonthlySummaries(r), nil
}

// CategoryTotals returns spend per category, largest first.
func (s *FinanceService) CategoryTotals(ctx context.Context, r analyze.Range) ([]domain.CategoryTotal, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.CategoryTotals")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.CategoryTotals(r), nil
}

// SpendingTrends returns the per-category monthly series.
func (s *FinanceService) SpendingTrends(ctx context.Context, r analyze.Range) ([]domain.TrendPoint, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.SpendingTrends")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.SpendingTrends(r), nil
}

// TopMerchants ranks merchants by total spend.
func (s *FinanceService) TopMerchants(ctx context.Context, limit int, r analyze.Range) ([]domain.MerchantTotal, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.TopMerchants")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.TopMerchants(limit, r), nil
}

// IncomeVsExpenses totals the period.
func (s *FinanceService) IncomeVsExpenses(ctx context.Context, r analyze.Range) (domain.IncomeVsExpenses, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.IncomeVsExpenses")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return domain.IncomeVsExpenses{}, err
	}
	return a.IncomeVsExpenses(r), nil
}

// BudgetVsActual lines spend up against the configured budgets.
func (s *FinanceService) BudgetVsActual(ctx context.Context, r analyze.Range) ([]domain.BudgetComparison, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.BudgetVsActual")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.BudgetVsActual(s.budgets, r), nil
}

// Forecast projects future monthly spend for one category.
func (s *FinanceService) Forecast(ctx context.Context, category string, months int, r analyze.Range) ([]domain.ForecastPoint, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.Forecast")
	defer span.End()
	span.SetAttributes(attribute.String("category", category), attribute.Int("months", months))

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.Forecast(category, months, r, time.Now()), nil
}

// SpendingVelocity measures the current month's burn rate.
func (s *FinanceService) SpendingVelocity(ctx context.Context, category string, r analyze.Range) (domain.VelocityReport, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.SpendingVelocity")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return domain.VelocityReport{}, err
	}
	return a.SpendingVelocity(category, r, time.Now()), nil
}

// SeasonalPatterns averages a category's spend per calendar month.
func (s *FinanceService) SeasonalPatterns(ctx context.Context, category string) ([]domain.SeasonalPattern, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.SeasonalPatterns")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.SeasonalPatterns(category), nil
}

// CompareCategories diffs category spend between two periods.
func (s *FinanceService) CompareCategories(ctx context.Context, categories []string, periodA, periodB analyze.Range) ([]domain.CategoryComparison, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.CompareCategories")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	return a.CompareCategories(categories, periodA, periodB), nil
}

// RecurringCharges detects repeating expenses.
func (s *FinanceService) RecurringCharges(ctx context.Context) ([]domain.RecurringPattern, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.RecurringCharges")
	defer span.End()

	txns, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	patterns := recurring.Detect(txns, s.detectOpts)
	span.SetAttributes(attribute.Int("patterns.count", len(patterns)))
	return patterns, nil
}

// Predictions lists expected future charges within the horizon.
func (s *FinanceService) Predictions(ctx context.Context, monthsAhead int) ([]domain.Prediction, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.Predictions")
	defer span.End()

	patterns, err := s.RecurringCharges(ctx)
	if err != nil {
		return nil, err
	}
	return recurring.PredictFuture(patterns, monthsAhead, time.Now()), nil
}

// MissedCharges lists recurring charges that are overdue.
func (s *FinanceService) MissedCharges(ctx context.Context) ([]domain.MissedCharge, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.MissedCharges")
	defer span.End()

	txns, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	patterns := recurring.Detect(txns, s.detectOpts)
	return recurring.FindMissing(patterns, txns, time.Now()), nil
}

// Alerts runs every alert check over the period, including missed
// recurring charges.
func (s *FinanceService) Alerts(ctx context.Context, r analyze.Range) ([]domain.Alert, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.Alerts")
	defer span.End()

	a, err := s.analyzer(ctx)
	if err != nil {
		return nil, err
	}
	alerts := alert.NewManager(a, s.budgets).All(r)

	missing, err := s.MissedCharges(ctx)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, alert.MissedRecurring(missing)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return domain.SeverityRank(alerts[i].Severity) < domain.SeverityRank(alerts[j].Severity)
	})
	for _, a := range alerts {
		s.metrics.IncrAlert(a.Severity)
	}
	span.SetAttributes(attribute.Int("alerts.count", len(alerts)))
	return alerts, nil
}

// PushAlerts computes the current alerts and delivers them to the
// configured sink. Without a sink it only returns them.
func (s *FinanceService) PushAlerts(ctx context.Context, r analyze.Range) ([]domain.Alert, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.PushAlerts")
	defer span.End()

	alerts, err := s.Alerts(ctx, r)
	if err != nil {
		return nil, err
	}
	if s.sink == nil || len(alerts) == 0 {
		return alerts, nil
	}
	if err := s.sink.Send(ctx, alerts); err != nil {
		s.metrics.IncrWebhookError()
		return alerts, err
	}
	return alerts, nil
}

// GenerateReports writes the full report set to the report directory.
func (s *FinanceService) GenerateReports(ctx context.Context, r analyze.Range) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.GenerateReports")
	defer span.End()

	txns, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := report.NewGenerator(analyze.New(txns), s.reportDir, s.logger)
	if err != nil {
		return nil, err
	}
	return gen.GenerateAll(txns, s.budgets, r)
}

// AddManualTransaction classifies and stores a manual entry.
func (s *FinanceService) AddManualTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	_, span := tracer.Start(ctx, "FinanceService.AddManualTransaction")
	defer span.End()

	if tx.Category == "" || tx.Category == domain.CategoryOther {
		tx.Category = s.classifier.Classify(tx)
	}
	s.classifier.ApplyAutoTags(tx)

	added, err := s.manual.Add(tx)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(txCacheKey)
	return added, nil
}

// UpdateManualTransaction replaces a stored manual entry.
func (s *FinanceService) UpdateManualTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	_, span := tracer.Start(ctx, "FinanceService.UpdateManualTransaction")
	defer span.End()

	updated, err := s.manual.Update(tx)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(txCacheKey)
	return updated, nil
}

// DeleteManualTransaction removes a stored manual entry.
func (s *FinanceService) DeleteManualTransaction(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "FinanceService.DeleteManualTransaction")
	defer span.End()

	if err := s.manual.Delete(id); err != nil {
		return err
	}
	s.cache.Delete(txCacheKey)
	return nil
}

// GetManualTransaction returns one stored manual entry.
func (s *FinanceService) GetManualTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	_, span := tracer.Start(ctx, "FinanceService.GetManualTransaction")
	defer span.End()

	return s.manual.Get(id)
}

// ListManualTransactions returns all stored manual entries.
func (s *FinanceService) ListManualTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	_, span := tracer.Start(ctx, "FinanceService.ListManualTransactions")
	defer span.End()

	return s.manual.All(), nil
}

// Duplicates scans the full transaction set for likely duplicates.
func (s *FinanceService) Duplicates(ctx context.Context) ([]store.DuplicatePair, error) {
	ctx, span := tracer.Start(ctx, "FinanceService.Duplicates")
	defer span.End()

	txns, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return store.DetectDuplicates(txns), nil
}

// MergeDuplicatePair collapses two manual entries into one. The first
// entry wins on every field, absorbs the second's tags and notes, and
// the second entry is deleted. Only manual entries can be merged;
// bank rows come from read-only statement files.
func (s *FinanceService) MergeDuplicatePair(ctx context.Context, firstID, secondID string) (*domain.Transaction, error) {
	_, span := tracer.Start(ctx, "FinanceService.MergeDuplicatePair")
	defer span.End()

	if firstID == secondID {
		return nil, &domain.ErrValidation{Field: "second_id", Message: "cannot merge a transaction with itself"}
	}

	first, err := s.manual.Get(firstID)
	if err != nil {
		return nil, err
	}
	second, err := s.manual.Get(secondID)
	if err != nil {
		return nil, err
	}

	merged := store.MergeDuplicates(first, second)
	if _, err := s.manual.Update(merged); err != nil {
		return nil, err
	}
	if err := s.manual.Delete(secondID); err != nil {
		return nil, err
	}
	s.cache.Delete(txCacheKey)

	s.logger.Info("duplicate pair merged",
		zap.String("kept", firstID),
		zap.String("removed", secondID))
	return merged, nil
}
