package rules

import (
	"strings"

	"github.com/pftrack/pftrack/internal/domain"
)

// Classifier assigns categories and auto-tags using a rule set.
// Classification is deterministic: rules are evaluated in the set's
// sorted order and the first surviving keyword match wins.
type Classifier struct {
	set *Set
}

// NewClassifier wraps a built rule set.
func NewClassifier(set *Set) *Classifier {
	return &Classifier{set: set}
}

// Set exposes the underlying rule set, e.g. for the rules API endpoint.
func (c *Classifier) Set() *Set {
	return c.set
}

// Classify returns the category for a transaction. The fallback rule is
// skipped during matching and only returned when nothing else matches.
func (c *Classifier) Classify(tx *domain.Transaction) string {
	desc := strings.ToUpper(tx.Description)

	for _, rule := range c.set.Rules() {
		if rule.Name == domain.CategoryOther {
			continue
		}
		if rule.RequireNegative && tx.Amount >= 0 {
			continue
		}

		for _, kw := range rule.Keywords {
			if !strings.Contains(desc, strings.ToUpper(kw)) {
				continue
			}
			if vetoed(rule, kw, tx) {
				// The match is void under this condition; keep
				// scanning remaining keywords and rules.
				continue
			}
			return rule.Name
		}
	}

	return domain.CategoryOther
}

// vetoed checks the rule's override predicates for the matched keyword.
func vetoed(rule *Rule, keyword string, tx *domain.Transaction) bool {
	for _, ov := range rule.Overrides {
		if !strings.EqualFold(ov.Keyword, keyword) {
			continue
		}
		switch ov.When {
		case WhenAmountNegative:
			if tx.Amount < 0 {
				return true
			}
		case WhenAmountPositive:
			if tx.Amount > 0 {
				return true
			}
		}
	}
	return false
}

// ApplyAutoTags adds every matching tag to the transaction, in the tag
// rules' declaration order. A tag rule matches when any of its keywords
// is a substring of the description or the transaction's current
// category is in its category list. Tagging is idempotent.
func (c *Classifier) ApplyAutoTags(tx *domain.Transaction) {
	desc := strings.ToUpper(tx.Description)

	for _, tag := range c.set.TagNames() {
		rule := c.set.tagRules[tag]
		matched := false
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, strings.ToUpper(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			for _, cat := range rule.Categories {
				if cat == tx.Category {
					matched = true
					break
				}
			}
		}
		if matched {
			tx.AddTag(tag)
		}
	}
}

// ClassifyAll classifies and auto-tags every transaction, mutating each
// one in place, and returns the same slice for chaining. There is no
// cross-transaction state, so processing order does not affect the
// outcome.
func (c *Classifier) ClassifyAll(txns []*domain.Transaction) []*domain.Transaction {
	for _, tx := range txns {
		tx.Category = c.Classify(tx)
		c.ApplyAutoTags(tx)
	}
	return txns
}
