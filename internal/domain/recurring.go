package domain

import "time"

// RecurringPattern summarizes a merchant whose charges repeat on a
// roughly fixed schedule. Patterns are recomputed from the full
// transaction history on every detection run and never treated as
// persisted state.
type RecurringPattern struct {
	Merchant     string    `json:"merchant"`
	MeanAmount   float64   `json:"mean_amount"`
	IntervalDays float64   `json:"interval_days"`
	LastDate     time.Time `json:"last_date"`
	Occurrences  int       `json:"occurrences"`
}

// Prediction is a single forecast occurrence of a recurring charge.
type Prediction struct {
	Pattern RecurringPattern `json:"pattern"`
	Date    time.Time        `json:"date"`
}

// MissedCharge flags a recurring pattern that was due but never showed
// up in the transaction history within tolerance.
type MissedCharge struct {
	Pattern  RecurringPattern `json:"pattern"`
	Expected time.Time        `json:"expected"`
}
