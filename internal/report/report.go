// Package report writes spending analysis out to files: CSV tables,
// a JSON export, an HTML summary, and an Excel workbook.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
)

// Generator renders reports from an analyzer into an output directory.
type Generator struct {
	analyzer *analyze.Analyzer
	outDir   string
	logger   *zap.Logger
}

func NewGenerator(analyzer *analyze.Analyzer, outDir string, logger *zap.Logger) (*Generator, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &domain.ErrConfig{Source: outDir, Reason: "cannot create report directory"}
	}
	return &Generator{analyzer: analyzer, outDir: outDir, logger: logger}, nil
}

// MonthlySummary writes a month-by-category spend matrix with a
// trailing total column.
func (g *Generator) MonthlySummary(r analyze.Range) (string, error) {
	points := g.analyzer.SpendingTrends(r)

	months := make(map[string]map[string]float64)
	categorySet := make(map[string]struct{})
	for _, pt := range points {
		if months[pt.Month] == nil {
			months[pt.Month] = make(map[string]float64)
		}
		months[pt.Month][pt.Category] = pt.Total
		categorySet[pt.Category] = struct{}{}
	}

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	monthKeys := make([]string, 0, len(months))
	for m := range months {
		monthKeys = append(monthKeys, m)
	}
	sort.Strings(monthKeys)

	rows := [][]string{append(append([]string{"Month"}, categories...), "Total")}
	for _, month := range monthKeys {
		row := []string{month}
		total := 0.0
		for _, category := range categories {
			amount := months[month][category]
			row = append(row, fmt.Sprintf("%.2f", amount))
			total += amount
		}
		row = append(row, fmt.Sprintf("%.2f", total))
		rows = append(rows, row)
	}

	return g.writeCSV("monthly_summary.csv", rows)
}

// CategoryTotals writes total spend per category, largest first.
func (g *Generator) CategoryTotals(r analyze.Range) (string, error) {
	rows := [][]string{{"Category", "Total Amount", "Transaction Count"}}
	for _, ct := range g.analyzer.CategoryTotals(r) {
		rows = append(rows, []string{ct.Category, fmt.Sprintf("%.2f", ct.Total), strconv.Itoa(ct.Count)})
	}
	return g.writeCSV("category_totals.csv", rows)
}

// TopMerchants writes the highest-spend merchants.
func (g *Generator) TopMerchants(limit int, r analyze.Range) (string, error) {
	rows := [][]string{{"Merchant", "Total Amount", "Transaction Count"}}
	for _, mt := range g.analyzer.TopMerchants(limit, r) {
		rows = append(rows, []string{mt.Merchant, fmt.Sprintf("%.2f", mt.Total), strconv.Itoa(mt.Count)})
	}
	return g.writeCSV("top_merchants.csv", rows)
}

// SpendingTrends writes a category-by-month matrix.
func (g *Generator) SpendingTrends(r analyze.Range) (string, error) {
	points := g.analyzer.SpendingTrends(r)

	byCategory := make(map[string]map[string]float64)
	monthSet := make(map[string]struct{})
	for _, pt := range points {
		if byCategory[pt.Category] == nil {
			byCategory[pt.Category] = make(map[string]float64)
		}
		byCategory[pt.Category][pt.Month] = pt.Total
		monthSet[pt.Month] = struct{}{}
	}

	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	rows := [][]string{append([]string{"Category"}, months...)}
	for _, category := range categories {
		row := []string{category}
		for _, month := range months {
			row = append(row, fmt.Sprintf("%.2f", byCategory[category][month]))
		}
		rows = append(rows, row)
	}

	return g.writeCSV("spending_trends.csv", rows)
}

// TransactionList writes the raw transactions for the period, date
// ascending.
func (g *Generator) TransactionList(txns []*domain.Transaction) (string, error) {
	sorted := make([]*domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	rows := [][]string{{"Date", "Account Type", "Description", "Amount", "Category", "Subcategory", "Credit Card"}}
	for _, t := range sorted {
		rows = append(rows, []string{
			t.Date.Format("2006-01-02"),
			string(t.AccountKind),
			t.Description,
			fmt.Sprintf("%.2f", t.Amount),
			t.Category,
			t.Subcategory,
			t.CardID,
		})
	}
	return g.writeCSV("transactions.csv", rows)
}

// BudgetComparison writes budget-vs-actual rows, highest utilization
// first. Unbudgeted categories are omitted.
func (g *Generator) BudgetComparison(budgets *budget.Manager, r analyze.Range) (string, error) {
	comparisons := g.analyzer.BudgetVsActual(budgets, r)
	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].Utilization > comparisons[j].Utilization
	})

	rows := [][]string{{"Category", "Budget", "Actual", "Difference", "Utilization %", "Status"}}
	for _, cmp := range comparisons {
		if cmp.Budget == 0 {
			continue
		}
		rows = append(rows, []string{
			cmp.Category,
			fmt.Sprintf("%.2f", cmp.Budget),
			fmt.Sprintf("%.2f", cmp.Actual),
			fmt.Sprintf("%.2f", cmp.Difference),
			fmt.Sprintf("%.1f", cmp.Utilization),
			cmp.Status,
		})
	}
	return g.writeCSV("budget_comparison.csv", rows)
}

// jsonExport is the envelope written by ExportJSON.
type jsonExport struct {
	Transactions []*domain.Transaction `json:"transactions"`
	Count        int                   `json:"count"`
	ExportDate   time.Time             `json:"export_date"`
}

// ExportJSON dumps the transactions with an export timestamp.
func (g *Generator) ExportJSON(txns []*domain.Transaction) (string, error) {
	sorted := make([]*domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	data, err := json.MarshalIndent(jsonExport{
		Transactions: sorted,
		Count:        len(sorted),
		ExportDate:   time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transaction export: %w", err)
	}

	path := filepath.Join(g.outDir, "transactions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// GenerateAll produces every report concurrently and returns a map of
// report name to output path. Budget reports are skipped when budgets
// is nil.
func (g *Generator) GenerateAll(txns []*domain.Transaction, budgets *budget.Manager, r analyze.Range) (map[string]string, error) {
	type result struct {
		name string
		path string
	}

	jobs := map[string]func() (string, error){
		"monthly_summary": func() (string, error) { return g.MonthlySummary(r) },
		"category_totals": func() (string, error) { return g.CategoryTotals(r) },
		"top_merchants":   func() (string, error) { return g.TopMerchants(20, r) },
		"spending_trends": func() (string, error) { return g.SpendingTrends(r) },
		"transactions":    func() (string, error) { return g.TransactionList(txns) },
		"json_export":     func() (string, error) { return g.ExportJSON(txns) },
		"summary_html":    func() (string, error) { return g.SummaryHTML(budgets, r) },
		"summary_xlsx":    func() (string, error) { return g.ExportExcel(txns, r) },
	}
	if budgets != nil {
		jobs["budget_comparison"] = func() (string, error) { return g.BudgetComparison(budgets, r) }
	}

	var group errgroup.Group
	results := make(chan result, len(jobs))
	for name, job := range jobs {
		name, job := name, job
		group.Go(func() error {
			path, err := job()
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results <- result{name: name, path: path}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	close(results)

	out := make(map[string]string, len(jobs))
	for res := range results {
		out[res.name] = res.path
	}
	g.logger.Info("reports generated", zap.Int("count", len(out)), zap.String("dir", g.outDir))
	return out, nil
}

func (g *Generator) writeCSV(filename string, rows [][]string) (string, error) {
	path := filepath.Join(g.outDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, nil
}
