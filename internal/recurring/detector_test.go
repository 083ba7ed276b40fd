package recurring_test

import (
	"math"
	"testing"
	"time"

	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/recurring"
)

func tx(t *testing.T, day time.Time, description string, amount float64) *domain.Transaction {
	t.Helper()
	out, err := domain.NewTransaction(day, domain.AccountCreditCard, description, amount)
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func netflixHistory(t *testing.T) []*domain.Transaction {
	start := date(2025, 1, 1)
	var txns []*domain.Transaction
	for i := 0; i < 4; i++ {
		txns = append(txns, tx(t, start.AddDate(0, 0, 30*i), "NETFLIX", 15.99))
	}
	return txns
}

func TestDetect_StableCharge(t *testing.T) {
	patterns := recurring.Detect(netflixHistory(t), recurring.Options{MinOccurrences: 3})

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	p := patterns[0]
	if p.Merchant != "NETFLIX" {
		t.Errorf("expected merchant NETFLIX, got %q", p.Merchant)
	}
	if math.Abs(p.MeanAmount-15.99) > 1e-9 {
		t.Errorf("expected mean amount 15.99, got %f", p.MeanAmount)
	}
	if math.Abs(p.IntervalDays-30.0) > 1e-9 {
		t.Errorf("expected mean interval 30.0, got %f", p.IntervalDays)
	}
	if p.Occurrences != 4 {
		t.Errorf("expected 4 occurrences, got %d", p.Occurrences)
	}
	if !p.LastDate.Equal(date(2025, 4, 1)) {
		t.Errorf("expected last date 2025-04-01, got %s", p.LastDate)
	}
}

func TestDetect_NormalizesMerchantKey(t *testing.T) {
	txns := []*domain.Transaction{
		tx(t, date(2025, 1, 1), "netflix   .com", 15.99),
		tx(t, date(2025, 1, 31), "NETFLIX .COM", 15.99),
		tx(t, date(2025, 3, 2), "Netflix  .Com", 15.99),
	}

	patterns := recurring.Detect(txns, recurring.Options{MinOccurrences: 3})
	if len(patterns) != 1 {
		t.Fatalf("expected whitespace/case variants to group together, got %d patterns", len(patterns))
	}
	if patterns[0].Merchant != "NETFLIX .COM" {
		t.Errorf("unexpected normalized key %q", patterns[0].Merchant)
	}
}

func TestDetect_BelowMinOccurrences(t *testing.T) {
	txns := []*domain.Transaction{
		tx(t, date(2025, 1, 1), "NETFLIX", 15.99),
		tx(t, date(2025, 1, 31), "NETFLIX", 15.99),
	}

	if patterns := recurring.Detect(txns, recurring.Options{MinOccurrences: 3}); len(patterns) != 0 {
		t.Errorf("expected no patterns below threshold, got %d", len(patterns))
	}
}

func TestDetect_RejectsVariableAmounts(t *testing.T) {
	txns := []*domain.Transaction{
		tx(t, date(2025, 1, 1), "GYM", 10.00),
		tx(t, date(2025, 1, 31), "GYM", 25.00),
		tx(t, date(2025, 3, 2), "GYM", 10.00),
	}

	// max/min = 2.5 > 1 + 0.2
	if patterns := recurring.Detect(txns, recurring.Options{MinOccurrences: 3, AmountTolerance: 0.2}); len(patterns) != 0 {
		t.Errorf("expected variable amounts to be rejected, got %d patterns", len(patterns))
	}
}

func TestDetect_RejectsIrregularIntervals(t *testing.T) {
	txns := []*domain.Transaction{
		tx(t, date(2025, 1, 1), "COFFEE SHOP", 5.00),
		tx(t, date(2025, 1, 3), "COFFEE SHOP", 5.00),
		tx(t, date(2025, 3, 1), "COFFEE SHOP", 5.00),
	}

	// Gaps of 2 and 57 days: max/min far beyond the 2x gate.
	if patterns := recurring.Detect(txns, recurring.Options{MinOccurrences: 3}); len(patterns) != 0 {
		t.Errorf("expected irregular intervals to be rejected, got %d patterns", len(patterns))
	}
}

func TestDetect_SameDayDuplicatesNotAnInterval(t *testing.T) {
	d := date(2025, 1, 5)
	txns := []*domain.Transaction{
		tx(t, d, "VENDING", 2.50),
		tx(t, d, "VENDING", 2.50),
		tx(t, d, "VENDING", 2.50),
	}

	// All gaps are zero, so no interval samples exist.
	if patterns := recurring.Detect(txns, recurring.Options{MinOccurrences: 3}); len(patterns) != 0 {
		t.Errorf("expected same-day group to be rejected, got %d patterns", len(patterns))
	}
}

func TestDetect_IgnoresIncome(t *testing.T) {
	txns := []*domain.Transaction{
		tx(t, date(2025, 1, 1), "PAYROLL", -2000),
		tx(t, date(2025, 1, 15), "PAYROLL", -2000),
		tx(t, date(2025, 1, 29), "PAYROLL", -2000),
	}

	if patterns := recurring.Detect(txns, recurring.Options{MinOccurrences: 3}); len(patterns) != 0 {
		t.Errorf("expected income to be excluded, got %d patterns", len(patterns))
	}
}

func TestDetect_EmptyInput(t *testing.T) {
	if patterns := recurring.Detect(nil, recurring.DefaultOptions()); len(patterns) != 0 {
		t.Errorf("expected empty result for empty input, got %d", len(patterns))
	}
}

func TestPredictNext(t *testing.T) {
	p := domain.RecurringPattern{
		Merchant:     "NETFLIX",
		IntervalDays: 30,
		LastDate:     date(2025, 1, 1),
	}

	next := recurring.PredictNext(p)
	if !next.Equal(date(2025, 1, 31)) {
		t.Errorf("expected 2025-01-31, got %s", next)
	}
}

func TestPredictFuture_OrderedAcrossPatterns(t *testing.T) {
	asOf := date(2025, 1, 1)
	patterns := []domain.RecurringPattern{
		{Merchant: "NETFLIX", MeanAmount: 15.99, IntervalDays: 30, LastDate: date(2024, 12, 20)},
		{Merchant: "SPOTIFY", MeanAmount: 10.99, IntervalDays: 28, LastDate: date(2024, 12, 25)},
	}

	preds := recurring.PredictFuture(patterns, 2, asOf)
	if len(preds) == 0 {
		t.Fatal("expected predictions within 2 months")
	}

	horizon := asOf.AddDate(0, 0, 60)
	for i, pr := range preds {
		if pr.Date.After(horizon) {
			t.Errorf("prediction %d past horizon: %s", i, pr.Date)
		}
		if i > 0 && preds[i].Date.Before(preds[i-1].Date) {
			t.Errorf("predictions not sorted at %d: %s before %s", i, preds[i].Date, preds[i-1].Date)
		}
	}
}

func TestFindMissing_OverdueWithoutCharge(t *testing.T) {
	history := netflixHistory(t) // last charge 2025-04-01, interval 30d
	patterns := recurring.Detect(history, recurring.Options{MinOccurrences: 3})

	// Well past the expected 2025-05-01 with no new charge in history.
	missing := recurring.FindMissing(patterns, history, date(2025, 6, 15))
	if len(missing) != 1 {
		t.Fatalf("expected 1 missed charge, got %d", len(missing))
	}
	if missing[0].Pattern.Merchant != "NETFLIX" {
		t.Errorf("expected NETFLIX to be missing, got %q", missing[0].Pattern.Merchant)
	}
	if !missing[0].Expected.Equal(date(2025, 5, 1)) {
		t.Errorf("expected due date 2025-05-01, got %s", missing[0].Expected)
	}
}

func TestFindMissing_ChargeWithinToleranceClears(t *testing.T) {
	history := netflixHistory(t)
	patterns := recurring.Detect(history, recurring.Options{MinOccurrences: 3})

	// Charge 3 days late and 50 cents off: inside both tolerances.
	history = append(history, tx(t, date(2025, 5, 4), "NETFLIX", 16.49))

	if missing := recurring.FindMissing(patterns, history, date(2025, 5, 10)); len(missing) != 0 {
		t.Errorf("expected no missed charges, got %d", len(missing))
	}
}

func TestFindMissing_NotYetDue(t *testing.T) {
	history := netflixHistory(t)
	patterns := recurring.Detect(history, recurring.Options{MinOccurrences: 3})

	if missing := recurring.FindMissing(patterns, history, date(2025, 4, 10)); len(missing) != 0 {
		t.Errorf("expected nothing due yet, got %d", len(missing))
	}
}

func TestFindMissing_AmountOutsideToleranceStaysMissing(t *testing.T) {
	history := netflixHistory(t)
	patterns := recurring.Detect(history, recurring.Options{MinOccurrences: 3})

	// Right date, wrong amount (more than 20% off the 15.99 mean).
	history = append(history, tx(t, date(2025, 5, 1), "NETFLIX", 25.00))

	if missing := recurring.FindMissing(patterns, history, date(2025, 5, 10)); len(missing) != 1 {
		t.Errorf("expected pattern still missing, got %d missing", len(missing))
	}
}
