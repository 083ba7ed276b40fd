package domain

import "time"

// Alert severity levels, ordered from least to most urgent.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert kinds.
const (
	AlertBudgetThreshold = "budget_threshold"
	AlertUnusualSpending = "unusual_spending"
	AlertSpendingSpike   = "spending_spike"
	AlertMissedRecurring = "missed_recurring"
)

// Alert is a single condition worth telling the user about.
type Alert struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category,omitempty"`
	Message   string    `json:"message"`
	Amount    float64   `json:"amount,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SeverityRank orders severities for sorting, most urgent first.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}
