// Package recurring infers periodic charges from transaction history
// and forecasts or flags their next occurrences.
package recurring

import (
	"sort"
	"strings"
	"time"

	"github.com/pftrack/pftrack/internal/domain"
)

const hoursPerDay = 24.0

// Options tunes the detection gates. Zero values fall back to defaults.
type Options struct {
	// MinOccurrences is the smallest group size considered recurring.
	MinOccurrences int
	// AmountTolerance bounds amount spread: a group is rejected when
	// max/min amount exceeds 1 + AmountTolerance.
	AmountTolerance float64
	// IntervalTolerance bounds gap spread the same way: rejected when
	// max/min gap exceeds 1 + IntervalTolerance.
	IntervalTolerance float64
}

// DefaultOptions matches the gates used by the CLI and the API when the
// caller does not override them: at least 3 occurrences, amounts within
// 20%, gap spread up to a factor of 2.
func DefaultOptions() Options {
	return Options{
		MinOccurrences:    3,
		AmountTolerance:   0.2,
		IntervalTolerance: 1.0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinOccurrences <= 0 {
		o.MinOccurrences = d.MinOccurrences
	}
	if o.AmountTolerance <= 0 {
		o.AmountTolerance = d.AmountTolerance
	}
	if o.IntervalTolerance <= 0 {
		o.IntervalTolerance = d.IntervalTolerance
	}
	return o
}

// NormalizeMerchant builds the grouping key: uppercase with internal
// whitespace runs collapsed to single spaces. Grouping is exact on this
// key; no fuzzy merchant matching happens here.
func NormalizeMerchant(description string) string {
	return strings.Join(strings.Fields(strings.ToUpper(description)), " ")
}

// Detect scans the expense side of the history (amount > 0) for
// merchants charging a stable amount at a stable interval. Patterns are
// computed fresh from the full history each call.
func Detect(txns []*domain.Transaction, opts Options) []domain.RecurringPattern {
	opts = opts.withDefaults()

	groups := make(map[string][]*domain.Transaction)
	for _, tx := range txns {
		if !tx.IsExpense() {
			continue
		}
		key := NormalizeMerchant(tx.Description)
		groups[key] = append(groups[key], tx)
	}

	var patterns []domain.RecurringPattern
	for merchant, group := range groups {
		if len(group) < opts.MinOccurrences {
			continue
		}

		sort.Slice(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		minAmt, maxAmt, sum := group[0].Amount, group[0].Amount, 0.0
		for _, tx := range group {
			sum += tx.Amount
			if tx.Amount < minAmt {
				minAmt = tx.Amount
			}
			if tx.Amount > maxAmt {
				maxAmt = tx.Amount
			}
		}
		if maxAmt/minAmt > 1+opts.AmountTolerance {
			continue
		}

		// Same-day duplicates do not count as an interval sample.
		var gaps []float64
		for i := 1; i < len(group); i++ {
			gap := group[i].Date.Sub(group[i-1].Date).Hours() / hoursPerDay
			if gap > 0 {
				gaps = append(gaps, gap)
			}
		}
		if len(gaps) == 0 {
			continue
		}

		minGap, maxGap, gapSum := gaps[0], gaps[0], 0.0
		for _, g := range gaps {
			gapSum += g
			if g < minGap {
				minGap = g
			}
			if g > maxGap {
				maxGap = g
			}
		}
		if maxGap/minGap > 1+opts.IntervalTolerance {
			continue
		}

		patterns = append(patterns, domain.RecurringPattern{
			Merchant:     merchant,
			MeanAmount:   sum / float64(len(group)),
			IntervalDays: gapSum / float64(len(gaps)),
			LastDate:     group[len(group)-1].Date,
			Occurrences:  len(group),
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].Merchant < patterns[j].Merchant
	})
	return patterns
}

// PredictNext returns the next expected occurrence date: the last seen
// date plus the mean interval. Fractional days carry through as hours.
func PredictNext(p domain.RecurringPattern) time.Time {
	return p.LastDate.Add(time.Duration(p.IntervalDays * hoursPerDay * float64(time.Hour)))
}

// PredictFuture emits every expected occurrence between each pattern's
// next date and asOf + monthsAhead × 30 days. The 30-day month is a
// deliberate approximation, not calendar arithmetic. Results are merged
// across patterns and sorted ascending by date.
func PredictFuture(patterns []domain.RecurringPattern, monthsAhead int, asOf time.Time) []domain.Prediction {
	horizon := asOf.Add(time.Duration(monthsAhead) * 30 * hoursPerDay * time.Hour)

	var out []domain.Prediction
	for _, p := range patterns {
		if p.IntervalDays <= 0 {
			continue
		}
		step := time.Duration(p.IntervalDays * hoursPerDay * float64(time.Hour))
		for next := PredictNext(p); !next.After(horizon); next = next.Add(step) {
			out = append(out, domain.Prediction{Pattern: p, Date: next})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// FindMissing reports patterns that were due by asOf but have no
// matching charge in the history. A charge matches when its description
// contains the merchant key (case-insensitive), its date is within half
// an interval of the expected date, and its amount is within 20% of the
// pattern's mean.
func FindMissing(patterns []domain.RecurringPattern, txns []*domain.Transaction, asOf time.Time) []domain.MissedCharge {
	var missing []domain.MissedCharge

	for _, p := range patterns {
		expected := PredictNext(p)
		if asOf.Before(expected) {
			continue
		}

		window := time.Duration(0.5 * p.IntervalDays * hoursPerDay * float64(time.Hour))
		found := false
		for _, tx := range txns {
			if !tx.IsExpense() {
				continue
			}
			if !strings.Contains(strings.ToUpper(tx.Description), p.Merchant) {
				continue
			}
			delta := tx.Date.Sub(expected)
			if delta < 0 {
				delta = -delta
			}
			if delta > window {
				continue
			}
			diff := tx.Amount - p.MeanAmount
			if diff < 0 {
				diff = -diff
			}
			if p.MeanAmount > 0 && diff/p.MeanAmount <= 0.2 {
				found = true
				break
			}
		}

		if !found {
			missing = append(missing, domain.MissedCharge{Pattern: p, Expected: expected})
		}
	}

	return missing
}
