package ingest_test

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/ingest"
)

func TestParseChecking_SignConvention(t *testing.T) {
	csv := `Date,Transaction Details,Funds Out,Funds In
01/15/2025,SAFEWAY #123,42.17,
01/16/2025,PAYROLL DEPOSIT,,2100.00
`
	p := ingest.NewParser(zap.NewNop())
	txns, err := p.ParseChecking(strings.NewReader(csv), "checking.csv")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}

	if txns[0].Amount != 42.17 || !txns[0].IsExpense() {
		t.Errorf("expected positive expense amount, got %f", txns[0].Amount)
	}
	if txns[1].Amount != -2100.00 || !txns[1].IsIncome() {
		t.Errorf("expected negative income amount, got %f", txns[1].Amount)
	}
	if txns[0].AccountKind != domain.AccountChecking {
		t.Errorf("expected checking account kind, got %q", txns[0].AccountKind)
	}
	want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if !txns[0].Date.Equal(want) {
		t.Errorf("expected date %s, got %s", want, txns[0].Date)
	}
	if txns[0].ID == "" {
		t.Error("expected generated transaction ID")
	}
}

func TestParseChecking_SkipsBadRows(t *testing.T) {
	csv := `Date,Transaction Details,Funds Out,Funds In
not-a-date,BROKEN ROW,10.00,
,,,
01/20/2025,COFFEE SHOP,4.50,
`
	p := ingest.NewParser(zap.NewNop())
	txns, err := p.ParseChecking(strings.NewReader(csv), "checking.csv")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected bad rows skipped without aborting, got %d transactions", len(txns))
	}
	if txns[0].Description != "COFFEE SHOP" {
		t.Errorf("unexpected surviving row: %q", txns[0].Description)
	}
}

func TestParseCreditCard_SkipsPaymentReversals(t *testing.T) {
	csv := `Date,Transaction Details,Funds Out,Funds In,Credit Card
02/01/2025,NETFLIX,15.99,,4512
02/05/2025,PAYMENT - THANK YOU,,350.00,4512
02/07/2025,AMAZON.CA,27.80,,4512
`
	p := ingest.NewParser(zap.NewNop())
	txns, err := p.ParseCreditCard(strings.NewReader(csv), "visa.csv")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected PAYMENT row skipped, got %d transactions", len(txns))
	}
	for _, tx := range txns {
		if tx.AccountKind != domain.AccountCreditCard {
			t.Errorf("expected credit-card account kind, got %q", tx.AccountKind)
		}
		if tx.CardID != "4512" {
			t.Errorf("expected card id 4512, got %q", tx.CardID)
		}
	}
}

func TestParse_EmptyFile(t *testing.T) {
	p := ingest.NewParser(zap.NewNop())
	_, err := p.ParseChecking(strings.NewReader(""), "empty.csv")
	if err == nil {
		t.Fatal("expected error for file without header, got nil")
	}
}
