package analyze_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
)

func tx(t *testing.T, day time.Time, description, category string, amount float64) *domain.Transaction {
	t.Helper()
	out, err := domain.NewTransaction(day, domain.AccountChecking, description, amount)
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	out.Category = category
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleHistory(t *testing.T) []*domain.Transaction {
	return []*domain.Transaction{
		tx(t, date(2025, 1, 5), "SAFEWAY #123", "Groceries", 100),
		tx(t, date(2025, 1, 12), "SAFEWAY #123", "Groceries", 50),
		tx(t, date(2025, 1, 20), "NETFLIX", "Subscriptions", 15.99),
		tx(t, date(2025, 1, 31), "PAYROLL DEPOSIT", "Income", -2000),
		tx(t, date(2025, 2, 3), "SAFEWAY #123", "Groceries", 80),
		tx(t, date(2025, 2, 20), "NETFLIX", "Subscriptions", 15.99),
		tx(t, date(2025, 2, 28), "PAYROLL DEPOSIT", "Income", -2000),
	}
}

func TestMonthlySummaries(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.MonthlySummaries(analyze.Range{})
	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got))
	}

	jan := got[0]
	if jan.Month != "2025-01" {
		t.Fatalf("expected months sorted, got %q first", jan.Month)
	}
	if math.Abs(jan.Expenses-165.99) > 1e-9 {
		t.Errorf("expected January expenses 165.99, got %f", jan.Expenses)
	}
	if jan.Income != 2000 {
		t.Errorf("expected January income 2000, got %f", jan.Income)
	}
	if math.Abs(jan.Net-(2000-165.99)) > 1e-9 {
		t.Errorf("unexpected January net %f", jan.Net)
	}
	if jan.Count != 4 {
		t.Errorf("expected 4 January transactions, got %d", jan.Count)
	}
}

func TestCategoryTotals_SortedDescending(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.CategoryTotals(analyze.Range{})
	if len(got) != 2 {
		t.Fatalf("expected 2 expense categories, got %d", len(got))
	}
	if got[0].Category != "Groceries" || math.Abs(got[0].Total-230) > 1e-9 {
		t.Errorf("expected Groceries 230 first, got %+v", got[0])
	}
	if got[1].Category != "Subscriptions" || got[1].Count != 2 {
		t.Errorf("expected Subscriptions with 2 charges, got %+v", got[1])
	}
}

func TestCategoryTotals_DateRange(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.CategoryTotals(analyze.Range{Start: date(2025, 2, 1), End: date(2025, 2, 28)})
	for _, ct := range got {
		if ct.Category == "Groceries" && math.Abs(ct.Total-80) > 1e-9 {
			t.Errorf("expected February Groceries total 80, got %f", ct.Total)
		}
	}
}

func TestTopMerchants(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.TopMerchants(1, analyze.Range{})
	if len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d merchants", len(got))
	}
	if got[0].Merchant != "SAFEWAY #123" || got[0].Count != 3 {
		t.Errorf("expected SAFEWAY on top with 3 visits, got %+v", got[0])
	}
}

func TestIncomeVsExpenses(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.IncomeVsExpenses(analyze.Range{})
	if got.Income != 4000 {
		t.Errorf("expected income 4000, got %f", got.Income)
	}
	if math.Abs(got.Expenses-261.98) > 1e-9 {
		t.Errorf("expected expenses 261.98, got %f", got.Expenses)
	}
	if got.SavingsRate <= 0 {
		t.Errorf("expected positive savings rate, got %f", got.SavingsRate)
	}
}

func TestBudgetVsActual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgets.json")
	if err := os.WriteFile(path, []byte(`{"monthly_budgets": {"Groceries": 100}}`), 0o644); err != nil {
		t.Fatalf("write budgets: %v", err)
	}
	budgets, err := budget.Load(path)
	if err != nil {
		t.Fatalf("load budgets: %v", err)
	}

	a := analyze.New(sampleHistory(t))
	got := a.BudgetVsActual(budgets, analyze.Range{Start: date(2025, 1, 1), End: date(2025, 1, 31)})

	var groceries *domain.BudgetComparison
	for i := range got {
		if got[i].Category == "Groceries" {
			groceries = &got[i]
		}
	}
	if groceries == nil {
		t.Fatal("expected a Groceries comparison")
	}
	if groceries.Actual != 150 {
		t.Errorf("expected actual 150, got %f", groceries.Actual)
	}
	if groceries.Utilization <= 100 {
		t.Errorf("expected over-budget utilization, got %f", groceries.Utilization)
	}
	if groceries.Status != analyze.StatusWayOver {
		t.Errorf("expected %q status, got %q", analyze.StatusWayOver, groceries.Status)
	}
}

func TestAverageMonthlySpending(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.AverageMonthlySpending("Groceries", analyze.Range{})
	// (150 + 80) / 2 months
	if math.Abs(got-115) > 1e-9 {
		t.Errorf("expected 115, got %f", got)
	}
	if a.AverageMonthlySpending("Nothing", analyze.Range{}) != 0 {
		t.Error("expected 0 for unknown category")
	}
}

func TestForecast(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.Forecast("Subscriptions", 3, analyze.Range{}, date(2025, 2, 28))
	if len(got) != 3 {
		t.Fatalf("expected 3 forecast points, got %d", len(got))
	}
	if got[0].Month != "2025-03" {
		t.Errorf("expected forecast to start next month, got %q", got[0].Month)
	}
	for _, pt := range got {
		if math.Abs(pt.Projected-15.99) > 1e-9 {
			t.Errorf("expected flat 15.99 projection, got %f", pt.Projected)
		}
	}
}

func TestSpendingVelocity(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.SpendingVelocity("Groceries", analyze.Range{}, date(2025, 1, 15))
	if got.SpentSoFar != 150 {
		t.Errorf("expected 150 spent by mid January, got %f", got.SpentSoFar)
	}
	if got.DaysElapsed != 15 {
		t.Errorf("expected 15 days elapsed, got %d", got.DaysElapsed)
	}
	if math.Abs(got.DailyRate-10) > 1e-9 {
		t.Errorf("expected daily rate 10, got %f", got.DailyRate)
	}
}

func TestCompareCategories(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	jan := analyze.Range{Start: date(2025, 1, 1), End: date(2025, 1, 31)}
	feb := analyze.Range{Start: date(2025, 2, 1), End: date(2025, 2, 28)}

	got := a.CompareCategories([]string{"Groceries"}, jan, feb)
	if len(got) != 1 {
		t.Fatalf("expected 1 comparison, got %d", len(got))
	}
	if math.Abs(got[0].Change-(-70)) > 1e-9 {
		t.Errorf("expected spend to drop by 70, got %f", got[0].Change)
	}
}

func TestSeasonalPatterns(t *testing.T) {
	a := analyze.New(sampleHistory(t))

	got := a.SeasonalPatterns("Subscriptions")
	if len(got) != 12 {
		t.Fatalf("expected 12 months, got %d", len(got))
	}
	if got[0].Samples != 1 || math.Abs(got[0].Average-15.99) > 1e-9 {
		t.Errorf("expected one January sample at 15.99, got %+v", got[0])
	}
	if got[5].Samples != 0 || got[5].Average != 0 {
		t.Errorf("expected empty June, got %+v", got[5])
	}
}

func TestAnalyzer_EmptyInput(t *testing.T) {
	a := analyze.New(nil)

	if got := a.MonthlySummaries(analyze.Range{}); len(got) != 0 {
		t.Errorf("expected no summaries, got %d", len(got))
	}
	if got := a.CategoryTotals(analyze.Range{}); len(got) != 0 {
		t.Errorf("expected no totals, got %d", len(got))
	}
	if got := a.IncomeVsExpenses(analyze.Range{}); got.Net != 0 {
		t.Errorf("expected zero net, got %f", got.Net)
	}
}

func TestFilter(t *testing.T) {
	history := sampleHistory(t)
	history[2].AddTag("streaming")

	tests := []struct {
		name   string
		filter analyze.Filter
		want   int
	}{
		{"all", analyze.Filter{}, 7},
		{"category", analyze.Filter{Category: "Groceries"}, 3},
		{"merchant substring", analyze.Filter{Merchant: "safeway"}, 3},
		{"date range", analyze.Filter{Start: date(2025, 2, 1)}, 3},
		{"amount band", analyze.Filter{MinAmount: 60, MaxAmount: 110}, 2},
		{"tag", analyze.Filter{Tag: "streaming"}, 1},
		{"search across tags", analyze.Filter{Search: "stream"}, 1},
		{"combined", analyze.Filter{Category: "Groceries", Start: date(2025, 2, 1)}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.filter.Apply(history)
			if len(got) != tc.want {
				t.Errorf("expected %d matches, got %d", tc.want, len(got))
			}
		})
	}
}
