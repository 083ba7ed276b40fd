// Package budget loads per-category budgets from a JSON file and
// prorates them over arbitrary date ranges.
package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pftrack/pftrack/internal/domain"
)

// Average days per month and per year, used for proration.
const (
	daysPerMonth = 30.44
	daysPerYear  = 365.25
)

// Manager holds the loaded budget figures.
type Manager struct {
	monthly  map[string]float64
	annual   map[string]float64
	specific map[string]map[string]float64
}

type budgetFile struct {
	MonthlyBudgets  map[string]float64            `json:"monthly_budgets"`
	AnnualBudgets   map[string]float64            `json:"annual_budgets"`
	CategoryBudgets map[string]map[string]float64 `json:"category_budgets"`
}

// New returns an empty manager with no budgets defined.
func New() *Manager {
	return &Manager{
		monthly:  make(map[string]float64),
		annual:   make(map[string]float64),
		specific: make(map[string]map[string]float64),
	}
}

// Load reads a budget JSON file. A missing file yields an empty
// manager; a malformed file or a negative amount is a config error.
func Load(path string) (*Manager, error) {
	m := New()
	if path == "" {
		return m, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("read failed: %v", err)}
	}

	var f budgetFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}

	for category, amount := range f.MonthlyBudgets {
		if amount < 0 {
			return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("negative monthly budget for %s: %.2f", category, amount)}
		}
		m.monthly[category] = amount
	}
	for category, amount := range f.AnnualBudgets {
		if amount < 0 {
			return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("negative annual budget for %s: %.2f", category, amount)}
		}
		m.annual[category] = amount
	}
	for category, periods := range f.CategoryBudgets {
		for period, amount := range periods {
			if amount < 0 {
				return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("negative budget for %s/%s: %.2f", category, period, amount)}
			}
		}
		m.specific[category] = periods
	}

	return m, nil
}

// Monthly returns the monthly budget for a category, 0 when unset.
func (m *Manager) Monthly(category string) float64 {
	return m.monthly[category]
}

// Annual returns the annual budget for a category, 0 when unset.
func (m *Manager) Annual(category string) float64 {
	return m.annual[category]
}

// ForPeriod prorates a category's budget across [start, end], both
// inclusive. Monthly budgets win over annual ones; annual budgets are
// prorated by day count.
func (m *Manager) ForPeriod(category string, start, end time.Time) float64 {
	days := end.Sub(start).Hours()/24 + 1

	if monthly := m.monthly[category]; monthly > 0 {
		return monthly * (days / daysPerMonth)
	}
	if annual := m.annual[category]; annual > 0 {
		return annual * (days / daysPerYear)
	}

	if periods, ok := m.specific[category]; ok {
		// Deterministic pick of the first period entry.
		keys := make([]string, 0, len(periods))
		for k := range periods {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			return periods[keys[0]]
		}
	}

	return 0
}

// HasBudget reports whether the category has any budget defined.
func (m *Manager) HasBudget(category string) bool {
	if _, ok := m.monthly[category]; ok {
		return true
	}
	if _, ok := m.annual[category]; ok {
		return true
	}
	_, ok := m.specific[category]
	return ok
}

// Categories lists every category with a budget, sorted.
func (m *Manager) Categories() []string {
	seen := make(map[string]bool)
	for c := range m.monthly {
		seen[c] = true
	}
	for c := range m.annual {
		seen[c] = true
	}
	for c := range m.specific {
		seen[c] = true
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
