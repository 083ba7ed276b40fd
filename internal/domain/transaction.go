package domain

import (
	"strings"
	"time"
)

// AccountKind identifies which bank export a transaction came from.
type AccountKind string

const (
	AccountChecking   AccountKind = "checking"
	AccountCreditCard AccountKind = "credit-card"
)

// CategoryOther is the fallback category assigned when no rule matches.
const CategoryOther = "Other"

// Transaction is a normalized bank transaction record.
//
// Sign convention: positive amount = expense (money out), negative
// amount = income (money in). This holds everywhere in the system and
// is never reversed downstream.
type Transaction struct {
	ID          string      `json:"id,omitempty"`
	Date        time.Time   `json:"date"`
	AccountKind AccountKind `json:"account_kind"`
	Description string      `json:"description"`
	Amount      float64     `json:"amount"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	CardID      string      `json:"card_id,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// NewTransaction validates and builds a Transaction. The category starts
// at the fallback value until a classifier assigns one.
func NewTransaction(date time.Time, kind AccountKind, description string, amount float64) (*Transaction, error) {
	switch kind {
	case AccountChecking, AccountCreditCard:
	default:
		return nil, &ErrValidation{Field: "account_kind", Message: "must be 'checking' or 'credit-card'"}
	}
	if strings.TrimSpace(description) == "" {
		return nil, &ErrValidation{Field: "description", Message: "must not be blank"}
	}

	return &Transaction{
		Date:        date,
		AccountKind: kind,
		Description: description,
		Amount:      amount,
		Category:    CategoryOther,
	}, nil
}

// IsExpense reports whether money left the account.
func (t *Transaction) IsExpense() bool { return t.Amount > 0 }

// IsIncome reports whether money entered the account.
func (t *Transaction) IsIncome() bool { return t.Amount < 0 }

// AbsAmount returns the unsigned transaction amount.
func (t *Transaction) AbsAmount() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// AddTag appends a tag unless it is already present. Insertion order is
// preserved.
func (t *Transaction) AddTag(tag string) {
	for _, existing := range t.Tags {
		if existing == tag {
			return
		}
	}
	t.Tags = append(t.Tags, tag)
}

// HasTag reports whether the transaction carries the given tag.
func (t *Transaction) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// MonthKey returns the transaction's month bucket as "YYYY-MM".
func (t *Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}
