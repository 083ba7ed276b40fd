package domain

// Aggregation result types produced by the analyzer and consumed by the
// report writers and the HTTP API.

// MonthlySummary totals one calendar month of activity.
type MonthlySummary struct {
	Month    string  `json:"month"` // "YYYY-MM"
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
	Count    int     `json:"count"`
}

// CategoryTotal is the spend total for one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// TrendPoint tracks one category's spend within one month.
type TrendPoint struct {
	Month    string  `json:"month"`
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MerchantTotal aggregates spend for one normalized merchant.
type MerchantTotal struct {
	Merchant string  `json:"merchant"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// IncomeVsExpenses compares totals over a whole period.
type IncomeVsExpenses struct {
	Income      float64 `json:"income"`
	Expenses    float64 `json:"expenses"`
	Net         float64 `json:"net"`
	SavingsRate float64 `json:"savings_rate"` // percent of income kept
}

// BudgetComparison lines up actual spend against a budget figure.
type BudgetComparison struct {
	Category    string  `json:"category"`
	Budget      float64 `json:"budget"`
	Actual      float64 `json:"actual"`
	Difference  float64 `json:"difference"`
	Utilization float64 `json:"utilization"` // percent of budget used
	Status      string  `json:"status"`
}

// ForecastPoint is a projected month of spending from the linear model.
type ForecastPoint struct {
	Month     string  `json:"month"`
	Projected float64 `json:"projected"`
}

// SeasonalPattern averages spend per calendar month across years.
type SeasonalPattern struct {
	Month   int     `json:"month"` // 1..12
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

// VelocityReport measures how fast the current month is being spent.
type VelocityReport struct {
	Month          string  `json:"month"`
	SpentSoFar     float64 `json:"spent_so_far"`
	DaysElapsed    int     `json:"days_elapsed"`
	DailyRate      float64 `json:"daily_rate"`
	ProjectedTotal float64 `json:"projected_total"`
}

// CategoryComparison reports one category's change between two periods.
type CategoryComparison struct {
	Category      string  `json:"category"`
	PeriodATotal  float64 `json:"period_a_total"`
	PeriodBTotal  float64 `json:"period_b_total"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}
