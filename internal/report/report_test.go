package report_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/report"
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

func sampleTxns(t *testing.T) []*domain.Transaction {
	t.Helper()
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	return []*domain.Transaction{
		tx(t, jan, "SAFEWAY #101", "Groceries", 120),
		tx(t, jan, "NETFLIX.COM", "Subscriptions", 15.99),
		tx(t, feb, "SAFEWAY #101", "Groceries", 80),
		tx(t, feb, "PAYROLL DEPOSIT", "Income", -2000),
	}
}

func newGenerator(t *testing.T, txns []*domain.Transaction) (*report.Generator, string) {
	t.Helper()
	dir := t.TempDir()
	g, err := report.NewGenerator(analyze.New(txns), dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCategoryTotals_SortedDescending(t *testing.T) {
	g, _ := newGenerator(t, sampleTxns(t))

	path, err := g.CategoryTotals(analyze.Range{})
	if err != nil {
		t.Fatalf("category totals: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 categories, got %d rows", len(rows))
	}
	if rows[1][0] != "Groceries" || rows[1][1] != "200.00" {
		t.Errorf("expected Groceries 200.00 first, got %v", rows[1])
	}
	if rows[2][0] != "Subscriptions" {
		t.Errorf("expected Subscriptions second, got %v", rows[2])
	}
}

func TestMonthlySummary_Matrix(t *testing.T) {
	g, _ := newGenerator(t, sampleTxns(t))

	path, err := g.MonthlySummary(analyze.Range{})
	if err != nil {
		t.Fatalf("monthly summary: %v", err)
	}

	rows := readCSV(t, path)
	want := []string{"Month", "Groceries", "Subscriptions", "Total"}
	if strings.Join(rows[0], ",") != strings.Join(want, ",") {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "2025-01" || rows[1][3] != "135.99" {
		t.Errorf("unexpected january row %v", rows[1])
	}
}

func TestTransactionList_DateAscending(t *testing.T) {
	txns := sampleTxns(t)
	g, _ := newGenerator(t, txns)

	path, err := g.TransactionList(txns)
	if err != nil {
		t.Fatalf("transaction list: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(rows))
	}
	if rows[1][0] != "2025-01-10" || rows[4][0] != "2025-02-10" {
		t.Errorf("rows not ordered by date: first %s last %s", rows[1][0], rows[4][0])
	}
}

func TestExportJSON(t *testing.T) {
	txns := sampleTxns(t)
	g, _ := newGenerator(t, txns)

	path, err := g.ExportJSON(txns)
	if err != nil {
		t.Fatalf("export json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var out struct {
		Transactions []*domain.Transaction `json:"transactions"`
		Count        int                   `json:"count"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if out.Count != 4 || len(out.Transactions) != 4 {
		t.Errorf("expected 4 transactions, got count %d len %d", out.Count, len(out.Transactions))
	}
}

func TestGenerateAll(t *testing.T) {
	txns := sampleTxns(t)
	g, dir := newGenerator(t, txns)

	budgetPath := filepath.Join(t.TempDir(), "budgets.json")
	if err := os.WriteFile(budgetPath, []byte(`{"monthly_budgets": {"Groceries": 300}}`), 0o644); err != nil {
		t.Fatalf("write budgets: %v", err)
	}
	budgets, err := budget.Load(budgetPath)
	if err != nil {
		t.Fatalf("load budgets: %v", err)
	}

	paths, err := g.GenerateAll(txns, budgets, analyze.Range{})
	if err != nil {
		t.Fatalf("generate all: %v", err)
	}

	for _, name := range []string{
		"monthly_summary", "category_totals", "top_merchants", "spending_trends",
		"transactions", "json_export", "summary_html", "summary_xlsx", "budget_comparison",
	} {
		path, ok := paths[name]
		if !ok {
			t.Errorf("missing report %q", name)
			continue
		}
		if !strings.HasPrefix(path, dir) {
			t.Errorf("report %q written outside output dir: %s", name, path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("report %q not on disk: %v", name, err)
		}
	}
}
