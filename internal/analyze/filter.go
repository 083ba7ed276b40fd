package analyze

import (
	"strings"
	"time"

	"github.com/pftrack/pftrack/internal/domain"
)

// Filter narrows a transaction set. Zero-valued fields are ignored, so
// an empty Filter matches everything. Amount bounds apply to the
// unsigned amount.
type Filter struct {
	Category    string
	AccountKind domain.AccountKind
	Merchant    string // case-insensitive substring of the description
	Search      string // matched against description, notes, and tags
	Tag         string
	Start       time.Time
	End         time.Time
	MinAmount   float64
	MaxAmount   float64
}

// Apply returns the transactions matching every set criterion.
func (f Filter) Apply(txns []*domain.Transaction) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(txns))
	for _, tx := range txns {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (f Filter) matches(tx *domain.Transaction) bool {
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.AccountKind != "" && tx.AccountKind != f.AccountKind {
		return false
	}
	if !f.Start.IsZero() && tx.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && tx.Date.After(f.End) {
		return false
	}

	abs := tx.AbsAmount()
	if f.MinAmount > 0 && abs < f.MinAmount {
		return false
	}
	if f.MaxAmount > 0 && abs > f.MaxAmount {
		return false
	}

	if f.Merchant != "" &&
		!strings.Contains(strings.ToLower(tx.Description), strings.ToLower(f.Merchant)) {
		return false
	}
	if f.Tag != "" && !tx.HasTag(f.Tag) {
		return false
	}
	if f.Search != "" && !searchMatch(tx, f.Search) {
		return false
	}
	return true
}

func searchMatch(tx *domain.Transaction, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(tx.Description), term) {
		return true
	}
	if strings.Contains(strings.ToLower(tx.Notes), term) {
		return true
	}
	for _, tag := range tx.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
