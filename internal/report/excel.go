package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pftrack/pftrack/internal/analyze"
	"github.com/pftrack/pftrack/internal/domain"
)

// ExportExcel writes a workbook with Summary, Categories and
// Transactions sheets.
func (g *Generator) ExportExcel(txns []*domain.Transaction, r analyze.Range) (string, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	headerStyle, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
	})
	if err != nil {
		return "", fmt.Errorf("create header style: %w", err)
	}

	overview := g.analyzer.IncomeVsExpenses(r)
	if err := g.writeSheet(wb, "Summary", headerStyle, [][]interface{}{
		{"Metric", "Amount"},
		{"Total Income", overview.Income},
		{"Total Expenses", overview.Expenses},
		{"Net", overview.Net},
		{"Savings Rate %", overview.SavingsRate},
	}); err != nil {
		return "", err
	}

	categoryRows := [][]interface{}{{"Category", "Total Amount", "Transaction Count"}}
	for _, ct := range g.analyzer.CategoryTotals(r) {
		categoryRows = append(categoryRows, []interface{}{ct.Category, ct.Total, ct.Count})
	}
	if err := g.writeSheet(wb, "Categories", headerStyle, categoryRows); err != nil {
		return "", err
	}

	sorted := make([]*domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	txRows := [][]interface{}{{"Date", "Account Type", "Description", "Amount", "Category", "Subcategory", "Credit Card", "Tags", "Notes"}}
	for _, t := range sorted {
		txRows = append(txRows, []interface{}{
			t.Date.Format("2006-01-02"),
			string(t.AccountKind),
			t.Description,
			t.Amount,
			t.Category,
			t.Subcategory,
			t.CardID,
			strings.Join(t.Tags, ", "),
			t.Notes,
		})
	}
	if err := g.writeSheet(wb, "Transactions", headerStyle, txRows); err != nil {
		return "", err
	}

	// Drop the default sheet excelize creates.
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("delete default sheet: %w", err)
	}

	path := filepath.Join(g.outDir, "summary.xlsx")
	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func (g *Generator) writeSheet(wb *excelize.File, name string, headerStyle int, rows [][]interface{}) error {
	if _, err := wb.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
		if err := wb.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}
	if len(rows) > 0 {
		end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return fmt.Errorf("sheet %s header: %w", name, err)
		}
		if err := wb.SetCellStyle(name, "A1", end, headerStyle); err != nil {
			return fmt.Errorf("sheet %s header style: %w", name, err)
		}
	}
	return nil
}
