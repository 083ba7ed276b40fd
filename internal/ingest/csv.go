// Package ingest parses bank-exported CSV files into normalized
// transactions. Both supported exports share the layout
//
//	Date, Transaction Details, Funds Out, Funds In[, Credit Card]
//
// with dates in MM/DD/YYYY. Funds Out becomes a positive (expense)
// amount, Funds In a negative (income) one.
package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/domain"
)

const dateLayout = "01/02/2006"

// Parser reads bank CSV exports. Bad rows are logged and skipped, never
// fatal for the file.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseChecking reads a chequing-account export.
func (p *Parser) ParseChecking(r io.Reader, source string) ([]*domain.Transaction, error) {
	return p.parse(r, source, domain.AccountChecking)
}

// ParseCreditCard reads a credit-card export. Negative PAYMENT rows are
// skipped because the same payment already appears on the checking
// side.
func (p *Parser) ParseCreditCard(r io.Reader, source string) ([]*domain.Transaction, error) {
	return p.parse(r, source, domain.AccountCreditCard)
}

func (p *Parser) parse(r io.Reader, source string, kind domain.AccountKind) ([]*domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &domain.ErrConfig{Source: source, Reason: "empty or unreadable CSV"}
	}
	cols := indexColumns(header)

	var txns []*domain.Transaction
	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("skipping malformed row",
				zap.String("source", source),
				zap.Int("row", rowNum),
				zap.Error(err),
			)
			continue
		}

		dateStr := field(record, cols, "date")
		if dateStr == "" {
			continue
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			p.logger.Warn("skipping row with bad date",
				zap.String("source", source),
				zap.Int("row", rowNum),
				zap.String("date", dateStr),
			)
			continue
		}

		description := strings.Trim(field(record, cols, "transaction details"), `"`)
		amount := signedAmount(field(record, cols, "funds out"), field(record, cols, "funds in"))

		if amount == 0 && description == "" {
			continue
		}
		if kind == domain.AccountCreditCard && amount < 0 &&
			strings.Contains(strings.ToUpper(description), "PAYMENT") {
			continue
		}

		tx, err := domain.NewTransaction(date, kind, description, amount)
		if err != nil {
			p.logger.Warn("skipping invalid row",
				zap.String("source", source),
				zap.Int("row", rowNum),
				zap.Error(err),
			)
			continue
		}
		tx.ID = uuid.New().String()
		if kind == domain.AccountCreditCard {
			tx.CardID = field(record, cols, "credit card")
		}
		txns = append(txns, tx)
	}

	return txns, nil
}

// signedAmount normalizes the two-column amount format. Unparsable
// values collapse to zero and the row is dropped by the caller when it
// carries no description either.
func signedAmount(fundsOut, fundsIn string) float64 {
	if fundsOut != "" {
		v, err := strconv.ParseFloat(fundsOut, 64)
		if err != nil {
			return 0
		}
		return v
	}
	if fundsIn != "" {
		v, err := strconv.ParseFloat(fundsIn, 64)
		if err != nil {
			return 0
		}
		return -v
	}
	return 0
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
