package rules_test

import (
	"testing"
	"time"

	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/rules"
)

func mustTx(t *testing.T, description string, amount float64) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		domain.AccountChecking, description, amount,
	)
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	return tx
}

func loadSet(t *testing.T, content string) *rules.Set {
	t.Helper()
	set, err := rules.Load(writeRuleFile(t, "rules.yaml", content))
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return set
}

func TestClassify_KeywordMatch(t *testing.T) {
	set := loadSet(t, `
categories:
  Groceries:
    keywords: ["MART"]
    priority: 1
`)
	c := rules.NewClassifier(set)

	got := c.Classify(mustTx(t, "SUPERMART #44", 20.0))
	if got != "Groceries" {
		t.Errorf("expected Groceries, got %q", got)
	}
}

func TestClassify_LowerPriorityWins(t *testing.T) {
	set := loadSet(t, `
categories:
  Subscriptions:
    keywords: ["NETFLIX"]
    priority: 1
  Entertainment:
    keywords: ["NETFLIX"]
    priority: 5
`)
	c := rules.NewClassifier(set)

	got := c.Classify(mustTx(t, "NETFLIX.COM", 15.99))
	if got != "Subscriptions" {
		t.Errorf("expected lower-priority rule to win, got %q", got)
	}
}

func TestClassify_EqualPriorityFirstDeclaredWins(t *testing.T) {
	set := loadSet(t, `
categories:
  Zeta:
    keywords: ["MART"]
    priority: 1
  Alpha:
    keywords: ["MART"]
    priority: 1
`)
	c := rules.NewClassifier(set)

	got := c.Classify(mustTx(t, "SUPERMART #44", 20.0))
	if got != "Zeta" {
		t.Errorf("expected first-declared category to win the tie, got %q", got)
	}
}

func TestClassify_NoMatchReturnsFallback(t *testing.T) {
	set := loadSet(t, `
categories:
  Groceries:
    keywords: ["MART"]
    priority: 1
`)
	c := rules.NewClassifier(set)

	got := c.Classify(mustTx(t, "UNKNOWN VENDOR 123", 10.0))
	if got != domain.CategoryOther {
		t.Errorf("expected fallback category, got %q", got)
	}
}

func TestClassify_RequireNegativeSkipsPositiveAmount(t *testing.T) {
	set := loadSet(t, `
categories:
  Income:
    keywords: ["PAYROLL"]
    priority: 1
    require_negative_amount: true
`)
	c := rules.NewClassifier(set)

	// Keyword matches but the amount is positive, so the rule is skipped.
	if got := c.Classify(mustTx(t, "PAYROLL DEPOSIT", 500.0)); got != domain.CategoryOther {
		t.Errorf("expected fallback for positive amount, got %q", got)
	}
	if got := c.Classify(mustTx(t, "PAYROLL DEPOSIT", -500.0)); got != "Income" {
		t.Errorf("expected Income for negative amount, got %q", got)
	}
}

func TestClassify_OverrideVetoesKeyword(t *testing.T) {
	set := loadSet(t, `
categories:
  Travel:
    keywords: ["HOTEL", "CASH INTEREST"]
    priority: 3
    overrides:
      - keyword: "CASH INTEREST"
        when: "amount-negative"
  Income:
    keywords: ["INTEREST"]
    priority: 5
    require_negative_amount: true
`)
	c := rules.NewClassifier(set)

	// Negative amount: the Travel keyword is vetoed, scanning continues
	// and the later income rule catches it.
	if got := c.Classify(mustTx(t, "CASH INTEREST", -3.20)); got != "Income" {
		t.Errorf("expected veto to fall through to Income, got %q", got)
	}
	// Positive amount: no veto, Travel matches normally.
	if got := c.Classify(mustTx(t, "CASH INTEREST", 3.20)); got != "Travel" {
		t.Errorf("expected Travel for positive amount, got %q", got)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	set := loadSet(t, `
categories:
  Groceries:
    keywords: ["safeway"]
    priority: 1
`)
	c := rules.NewClassifier(set)

	if got := c.Classify(mustTx(t, "SAFEWAY #123 VANCOUVER", 42.17)); got != "Groceries" {
		t.Errorf("expected case-insensitive match, got %q", got)
	}
}

func TestApplyAutoTags_Idempotent(t *testing.T) {
	set := loadSet(t, `
categories:
  Subscriptions:
    keywords: ["NETFLIX"]
    priority: 1
auto_tagging:
  streaming:
    keywords: ["NETFLIX", "SPOTIFY"]
  fixed-cost:
    categories: ["Subscriptions", "Utilities"]
`)
	c := rules.NewClassifier(set)

	tx := mustTx(t, "NETFLIX.COM", 15.99)
	tx.Category = c.Classify(tx)

	c.ApplyAutoTags(tx)
	c.ApplyAutoTags(tx)

	if len(tx.Tags) != 2 {
		t.Fatalf("expected 2 tags after double application, got %v", tx.Tags)
	}
	if !tx.HasTag("streaming") || !tx.HasTag("fixed-cost") {
		t.Errorf("expected streaming and fixed-cost tags, got %v", tx.Tags)
	}
}

func TestApplyAutoTags_DeclarationOrder(t *testing.T) {
	set := loadSet(t, `
categories:
  Subscriptions:
    keywords: ["NETFLIX"]
    priority: 1
auto_tagging:
  ddd:
    keywords: ["NETFLIX"]
  aaa:
    keywords: ["NETFLIX"]
  ccc:
    keywords: ["NETFLIX"]
  bbb:
    keywords: ["NETFLIX"]
`)
	c := rules.NewClassifier(set)

	want := []string{"ddd", "aaa", "ccc", "bbb"}
	// Every transaction gets the tags in the same declared order, no
	// matter how often tagging runs.
	for i := 0; i < 50; i++ {
		tx := mustTx(t, "NETFLIX.COM", 15.99)
		tx.Category = c.Classify(tx)
		c.ApplyAutoTags(tx)

		if len(tx.Tags) != len(want) {
			t.Fatalf("expected %d tags, got %v", len(want), tx.Tags)
		}
		for j := range want {
			if tx.Tags[j] != want[j] {
				t.Fatalf("run %d: expected tag order %v, got %v", i, want, tx.Tags)
			}
		}
	}
}

func TestApplyAutoTags_CategoryMembership(t *testing.T) {
	set := loadSet(t, `
categories:
  Utilities:
    keywords: ["HYDRO"]
    priority: 1
auto_tagging:
  fixed-cost:
    categories: ["Utilities"]
`)
	c := rules.NewClassifier(set)

	// Description matches no tag keyword; the category list alone tags it.
	tx := mustTx(t, "BC HYDRO PAYMENT", 88.0)
	tx.Category = c.Classify(tx)
	c.ApplyAutoTags(tx)

	if !tx.HasTag("fixed-cost") {
		t.Errorf("expected category-driven tag, got %v", tx.Tags)
	}
}

func TestClassifyAll_MutatesInPlace(t *testing.T) {
	set := loadSet(t, `
categories:
  Groceries:
    keywords: ["MART"]
    priority: 1
`)
	c := rules.NewClassifier(set)

	txns := []*domain.Transaction{
		mustTx(t, "SUPERMART #44", 20.0),
		mustTx(t, "SOMETHING ELSE", 5.0),
	}

	out := c.ClassifyAll(txns)
	if len(out) != len(txns) {
		t.Fatalf("expected same collection back, got %d items", len(out))
	}
	if txns[0].Category != "Groceries" {
		t.Errorf("expected input slice to be mutated, got %q", txns[0].Category)
	}
	if txns[1].Category != domain.CategoryOther {
		t.Errorf("expected fallback on second transaction, got %q", txns[1].Category)
	}
}
