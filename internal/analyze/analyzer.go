// Package analyze aggregates classified transactions into summaries,
// trends, forecasts, and budget comparisons.
package analyze

import (
	"sort"
	"time"

	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
)

// Budget comparison status labels.
const (
	StatusUnderBudget = "Under Budget"
	StatusOnTrack     = "On Track"
	StatusOverBudget  = "Over Budget"
	StatusWayOver     = "Significantly Over"
)

// Range bounds an analysis period. Zero times mean unbounded; both
// bounds are inclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Analyzer reads a classified transaction set. It never mutates the
// transactions it is given.
type Analyzer struct {
	txns []*domain.Transaction
}

func New(txns []*domain.Transaction) *Analyzer {
	return &Analyzer{txns: txns}
}

func (a *Analyzer) inRange(r Range) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(a.txns))
	for _, tx := range a.txns {
		if r.contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// span returns the period actually covered: the range bounds where
// given, otherwise the earliest and latest transaction dates.
func (a *Analyzer) span(r Range) (time.Time, time.Time) {
	start, end := r.Start, r.End
	if (start.IsZero() || end.IsZero()) && len(a.txns) > 0 {
		minDate, maxDate := a.txns[0].Date, a.txns[0].Date
		for _, tx := range a.txns[1:] {
			if tx.Date.Before(minDate) {
				minDate = tx.Date
			}
			if tx.Date.After(maxDate) {
				maxDate = tx.Date
			}
		}
		if start.IsZero() {
			start = minDate
		}
		if end.IsZero() {
			end = maxDate
		}
	}
	if start.IsZero() {
		start = time.Now()
	}
	if end.IsZero() {
		end = time.Now()
	}
	return start, end
}

// MonthlySummaries totals income and expenses per calendar month,
// sorted by month.
func (a *Analyzer) MonthlySummaries(r Range) []domain.MonthlySummary {
	byMonth := make(map[string]*domain.MonthlySummary)
	for _, tx := range a.inRange(r) {
		month := tx.MonthKey()
		s, ok := byMonth[month]
		if !ok {
			s = &domain.MonthlySummary{Month: month}
			byMonth[month] = s
		}
		if tx.IsIncome() {
			s.Income += tx.AbsAmount()
		} else if tx.IsExpense() {
			s.Expenses += tx.Amount
		}
		s.Count++
	}

	out := make([]domain.MonthlySummary, 0, len(byMonth))
	for _, s := range byMonth {
		s.Net = s.Income - s.Expenses
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// CategoryTotals sums expenses per category, sorted descending by
// total.
func (a *Analyzer) CategoryTotals(r Range) []domain.CategoryTotal {
	byCat := make(map[string]*domain.CategoryTotal)
	for _, tx := range a.inRange(r) {
		if !tx.IsExpense() {
			continue
		}
		ct, ok := byCat[tx.Category]
		if !ok {
			ct = &domain.CategoryTotal{Category: tx.Category}
			byCat[tx.Category] = ct
		}
		ct.Total += tx.Amount
		ct.Count++
	}

	out := make([]domain.CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// SpendingTrends returns the month-by-month expense series per
// category, sorted by month then category.
func (a *Analyzer) SpendingTrends(r Range) []domain.TrendPoint {
	type key struct{ month, category string }
	totals := make(map[key]float64)
	for _, tx := range a.inRange(r) {
		if !tx.IsExpense() {
			continue
		}
		totals[key{tx.MonthKey(), tx.Category}] += tx.Amount
	}

	out := make([]domain.TrendPoint, 0, len(totals))
	for k, total := range totals {
		out = append(out, domain.TrendPoint{Month: k.month, Category: k.category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopMerchants ranks merchants by total expense amount, descending.
func (a *Analyzer) TopMerchants(limit int, r Range) []domain.MerchantTotal {
	byMerchant := make(map[string]*domain.MerchantTotal)
	for _, tx := range a.inRange(r) {
		if !tx.IsExpense() {
			continue
		}
		mt, ok := byMerchant[tx.Description]
		if !ok {
			mt = &domain.MerchantTotal{Merchant: tx.Description}
			byMerchant[tx.Description] = mt
		}
		mt.Total += tx.Amount
		mt.Count++
	}

	out := make([]domain.MerchantTotal, 0, len(byMerchant))
	for _, mt := range byMerchant {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Merchant < out[j].Merchant
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// IncomeVsExpenses totals both sides of the ledger for the period.
func (a *Analyzer) IncomeVsExpenses(r Range) domain.IncomeVsExpenses {
	var result domain.IncomeVsExpenses
	for _, tx := range a.inRange(r) {
		if tx.IsIncome() {
			result.Income += tx.AbsAmount()
		} else if tx.IsExpense() {
			result.Expenses += tx.Amount
		}
	}
	result.Net = result.Income - result.Expenses
	if result.Income > 0 {
		result.SavingsRate = result.Net / result.Income * 100
	}
	return result
}

// BudgetVsActual compares spend against budgets for every category that
// has either. Sorted by category name.
func (a *Analyzer) BudgetVsActual(budgets *budget.Manager, r Range) []domain.BudgetComparison {
	start, end := a.span(r)

	actual := make(map[string]float64)
	for _, ct := range a.CategoryTotals(r) {
		actual[ct.Category] = ct.Total
	}

	categories := make(map[string]bool)
	for c := range actual {
		categories[c] = true
	}
	for _, c := range budgets.Categories() {
		categories[c] = true
	}

	out := make([]domain.BudgetComparison, 0, len(categories))
	for category := range categories {
		budgetAmt := budgets.ForPeriod(category, start, end)
		actualAmt := actual[category]

		utilization := 0.0
		if budgetAmt > 0 {
			utilization = actualAmt / budgetAmt * 100
		}

		out = append(out, domain.BudgetComparison{
			Category:    category,
			Budget:      budgetAmt,
			Actual:      actualAmt,
			Difference:  budgetAmt - actualAmt,
			Utilization: utilization,
			Status:      budgetStatus(utilization),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func budgetStatus(utilization float64) string {
	switch {
	case utilization > 120:
		return StatusWayOver
	case utilization > 100:
		return StatusOverBudget
	case utilization >= 80:
		return StatusOnTrack
	default:
		return StatusUnderBudget
	}
}

// AverageMonthlySpending is the mean of the category's monthly totals,
// over months where the category had any spend.
func (a *Analyzer) AverageMonthlySpending(category string, r Range) float64 {
	total, months := 0.0, 0
	for _, pt := range a.SpendingTrends(r) {
		if pt.Category == category {
			total += pt.Total
			months++
		}
	}
	if months == 0 {
		return 0
	}
	return total / float64(months)
}

// Forecast projects the category's spend per future month from its
// historical monthly average.
func (a *Analyzer) Forecast(category string, months int, r Range, from time.Time) []domain.ForecastPoint {
	avg := a.AverageMonthlySpending(category, r)

	out := make([]domain.ForecastPoint, 0, months)
	for i := 1; i <= months; i++ {
		out = append(out, domain.ForecastPoint{
			Month:     from.AddDate(0, i, 0).Format("2006-01"),
			Projected: avg,
		})
	}
	return out
}

// SpendingVelocity measures the category's daily burn rate across the
// period and projects the month total from it.
func (a *Analyzer) SpendingVelocity(category string, r Range, asOf time.Time) domain.VelocityReport {
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	spent := 0.0
	for _, tx := range a.txns {
		if tx.Category != category || !tx.IsExpense() {
			continue
		}
		if tx.Date.Before(monthStart) || tx.Date.After(asOf) {
			continue
		}
		spent += tx.Amount
	}

	daysElapsed := asOf.Day()
	rate := 0.0
	if daysElapsed > 0 {
		rate = spent / float64(daysElapsed)
	}

	return domain.VelocityReport{
		Month:          asOf.Format("2006-01"),
		SpentSoFar:     spent,
		DaysElapsed:    daysElapsed,
		DailyRate:      rate,
		ProjectedTotal: rate * 30.44,
	}
}

// CompareCategories reports each listed category's change between two
// periods.
func (a *Analyzer) CompareCategories(categories []string, periodA, periodB Range) []domain.CategoryComparison {
	totalsA := make(map[string]float64)
	for _, ct := range a.CategoryTotals(periodA) {
		totalsA[ct.Category] = ct.Total
	}
	totalsB := make(map[string]float64)
	for _, ct := range a.CategoryTotals(periodB) {
		totalsB[ct.Category] = ct.Total
	}

	out := make([]domain.CategoryComparison, 0, len(categories))
	for _, category := range categories {
		ta, tb := totalsA[category], totalsB[category]
		change := tb - ta
		pct := 0.0
		if ta > 0 {
			pct = change / ta * 100
		}
		out = append(out, domain.CategoryComparison{
			Category:      category,
			PeriodATotal:  ta,
			PeriodBTotal:  tb,
			Change:        change,
			ChangePercent: pct,
		})
	}
	return out
}

// SeasonalPatterns averages a category's per-transaction spend by
// calendar month across all years of history.
func (a *Analyzer) SeasonalPatterns(category string) []domain.SeasonalPattern {
	totals := make(map[int]float64)
	counts := make(map[int]int)
	for _, tx := range a.txns {
		if tx.Category != category || !tx.IsExpense() {
			continue
		}
		month := int(tx.Date.Month())
		totals[month] += tx.Amount
		counts[month]++
	}

	out := make([]domain.SeasonalPattern, 0, 12)
	for month := 1; month <= 12; month++ {
		p := domain.SeasonalPattern{Month: month, Samples: counts[month]}
		if counts[month] > 0 {
			p.Average = totals[month] / float64(counts[month])
		}
		out = append(out, p)
	}
	return out
}
