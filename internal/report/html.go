package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/budget"
	"github.com/pftrack/pftrack/internal/domain"
)

var summaryTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Spending Summary</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #366092; padding-bottom: 0.3em; }
table { border-collapse: collapse; margin: 1em 0 2em; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.9em; text-align: left; }
th { background: #366092; color: #fff; }
td.amount { text-align: right; }
.status-over { color: #b00020; font-weight: bold; }
.generated { color: #888; font-size: 0.85em; }
</style>
</head>
<body>
<h1>Spending Summary</h1>
<p class="generated">Generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>

<h2>Income vs Expenses</h2>
<table>
<tr><th>Metric</th><th>Amount</th></tr>
<tr><td>Total Income</td><td class="amount">{{money .Overview.Income}}</td></tr>
<tr><td>Total Expenses</td><td class="amount">{{money .Overview.Expenses}}</td></tr>
<tr><td>Net</td><td class="amount">{{money .Overview.Net}}</td></tr>
<tr><td>Savings Rate</td><td class="amount">{{pct .Overview.SavingsRate}}</td></tr>
</table>

<h2>Spending by Category</h2>
<table>
<tr><th>Category</th><th>Total</th><th>Transactions</th></tr>
{{range .Categories}}<tr><td>{{.Category}}</td><td class="amount">{{money .Total}}</td><td class="amount">{{.Count}}</td></tr>
{{end}}</table>

{{if .Budgets}}<h2>Budget vs Actual</h2>
<table>
<tr><th>Category</th><th>Budget</th><th>Actual</th><th>Utilization</th><th>Status</th></tr>
{{range .Budgets}}<tr><td>{{.Category}}</td><td class="amount">{{money .Budget}}</td><td class="amount">{{money .Actual}}</td><td class="amount">{{pct .Utilization}}</td><td{{if gt .Utilization 100.0}} class="status-over"{{end}}>{{.Status}}</td></tr>
{{end}}</table>
{{end}}

<h2>Monthly Totals</h2>
<table>
<tr><th>Month</th><th>Income</th><th>Expenses</th><th>Net</th></tr>
{{range .Months}}<tr><td>{{.Month}}</td><td class="amount">{{money .Income}}</td><td class="amount">{{money .Expenses}}</td><td class="amount">{{money .Net}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type summaryPage struct {
	GeneratedAt time.Time
	Overview    domain.IncomeVsExpenses
	Categories  []domain.CategoryTotal
	Budgets     []domain.BudgetComparison
	Months      []domain.MonthlySummary
}

// SummaryHTML renders a one-page HTML overview. The budget table is
// left out when budgets is nil.
func (g *Generator) SummaryHTML(budgets *budget.Manager, r analyze.Range) (string, error) {
	page := summaryPage{
		GeneratedAt: time.Now(),
		Overview:    g.analyzer.IncomeVsExpenses(r),
		Categories:  g.analyzer.CategoryTotals(r),
		Months:      g.analyzer.MonthlySummaries(r),
	}
	if budgets != nil {
		for _, cmp := range g.analyzer.BudgetVsActual(budgets, r) {
			if cmp.Budget > 0 {
				page.Budgets = append(page.Budgets, cmp)
			}
		}
	}

	path := filepath.Join(g.outDir, "summary.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := summaryTemplate.Execute(f, page); err != nil {
		return "", fmt.Errorf("render summary html: %w", err)
	}
	return path, nil
}
