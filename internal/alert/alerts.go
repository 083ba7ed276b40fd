// Package alert turns analysis results into user-facing alerts:
// budget threshold breaches, statistical spending outliers, and
// month-over-month spikes.
package alert

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
)

// Detection gates.
const (
	thresholdApproaching = 80.0
	thresholdOver        = 100.0
	thresholdWayOver     = 120.0

	zScoreThreshold = 2.0
	spikeMultiplier = 1.5
	minSamples      = 3
)

// Manager runs the alert checks over an analyzer and optional budgets.
type Manager struct {
	analyzer *analyze.Analyzer
	budgets  *budget.Manager
}

func NewManager(analyzer *analyze.Analyzer, budgets *budget.Manager) *Manager {
	return &Manager{analyzer: analyzer, budgets: budgets}
}

// All runs every check and merges the results sorted by severity,
// most urgent first.
func (m *Manager) All(r analyze.Range) []domain.Alert {
	var alerts []domain.Alert
	alerts = append(alerts, m.BudgetThresholds(r)...)
	alerts = append(alerts, m.UnusualSpending(r)...)
	alerts = append(alerts, m.SpendingSpikes(r)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return domain.SeverityRank(alerts[i].Severity) < domain.SeverityRank(alerts[j].Severity)
	})
	return alerts
}

// BudgetThresholds alerts per budgeted category at 80/100/120 percent
// utilization.
func (m *Manager) BudgetThresholds(r analyze.Range) []domain.Alert {
	if m.budgets == nil {
		return nil
	}

	var alerts []domain.Alert
	for _, cmp := range m.analyzer.BudgetVsActual(m.budgets, r) {
		if cmp.Budget == 0 {
			continue
		}

		switch {
		case cmp.Utilization >= thresholdWayOver:
			alerts = append(alerts, newAlert(domain.AlertBudgetThreshold, domain.SeverityCritical, cmp.Category, cmp.Actual, cmp.Budget,
				fmt.Sprintf("%s is significantly over budget (%.1f%% used)", cmp.Category, cmp.Utilization)))
		case cmp.Utilization >= thresholdOver:
			alerts = append(alerts, newAlert(domain.AlertBudgetThreshold, domain.SeverityWarning, cmp.Category, cmp.Actual, cmp.Budget,
				fmt.Sprintf("%s is over budget (%.1f%% used)", cmp.Category, cmp.Utilization)))
		case cmp.Utilization >= thresholdApproaching:
			alerts = append(alerts, newAlert(domain.AlertBudgetThreshold, domain.SeverityInfo, cmp.Category, cmp.Actual, cmp.Budget,
				fmt.Sprintf("%s is approaching budget limit (%.1f%% used)", cmp.Category, cmp.Utilization)))
		}
	}
	return alerts
}

// UnusualSpending flags categories with a monthly total more than two
// standard deviations from that category's mean. At most one alert per
// category, and only with at least three monthly samples.
func (m *Manager) UnusualSpending(r analyze.Range) []domain.Alert {
	series := make(map[string][]float64)
	for _, pt := range m.analyzer.SpendingTrends(r) {
		series[pt.Category] = append(series[pt.Category], pt.Total)
	}

	categories := make([]string, 0, len(series))
	for category := range series {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var alerts []domain.Alert
	for _, category := range categories {
		amounts := series[category]
		if len(amounts) < minSamples {
			continue
		}

		mean := 0.0
		for _, a := range amounts {
			mean += a
		}
		mean /= float64(len(amounts))

		variance := 0.0
		for _, a := range amounts {
			variance += (a - mean) * (a - mean)
		}
		stdDev := math.Sqrt(variance / float64(len(amounts)))
		if stdDev == 0 {
			continue
		}

		for _, amount := range amounts {
			z := math.Abs(amount-mean) / stdDev
			if z > zScoreThreshold {
				alerts = append(alerts, newAlert(domain.AlertUnusualSpending, domain.SeverityWarning, category, amount, mean,
					fmt.Sprintf("Unusual spending detected in %s: $%.2f (average: $%.2f, %.1f std dev)", category, amount, mean, z)))
				break
			}
		}
	}
	return alerts
}

// SpendingSpikes flags any month where a category's spend exceeds 1.5x
// the previous month.
func (m *Manager) SpendingSpikes(r analyze.Range) []domain.Alert {
	type monthTotal struct {
		month string
		total float64
	}
	series := make(map[string][]monthTotal)
	for _, pt := range m.analyzer.SpendingTrends(r) {
		series[pt.Category] = append(series[pt.Category], monthTotal{pt.Month, pt.Total})
	}

	categories := make([]string, 0, len(series))
	for category := range series {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var alerts []domain.Alert
	for _, category := range categories {
		points := series[category]
		// SpendingTrends returns month-sorted points per category.
		for i := 1; i < len(points); i++ {
			prev, curr := points[i-1], points[i]
			if prev.total > 0 && curr.total > prev.total*spikeMultiplier {
				increase := (curr.total - prev.total) / prev.total * 100
				alerts = append(alerts, newAlert(domain.AlertSpendingSpike, domain.SeverityWarning, category, curr.total, prev.total,
					fmt.Sprintf("Spending spike in %s: $%.2f in %s (%.1f%% increase from %s)", category, curr.total, curr.month, increase, prev.month)))
			}
		}
	}
	return alerts
}

// MissedRecurring converts overdue recurring charges into alerts.
func MissedRecurring(missing []domain.MissedCharge) []domain.Alert {
	alerts := make([]domain.Alert, 0, len(missing))
	for _, mc := range missing {
		alerts = append(alerts, newAlert(domain.AlertMissedRecurring, domain.SeverityWarning, "", mc.Pattern.MeanAmount, 0,
			fmt.Sprintf("Expected recurring charge from %s around %s did not appear", mc.Pattern.Merchant, mc.Expected.Format("2006-01-02"))))
	}
	return alerts
}

func newAlert(kind, severity, category string, amount, threshold float64, message string) domain.Alert {
	return domain.Alert{
		ID:        uuid.New().String(),
		Kind:      kind,
		Severity:  severity,
		Category:  category,
		Message:   message,
		Amount:    amount,
		Threshold: threshold,
		CreatedAt: time.Now(),
	}
}
