package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, "2006/01/02", time.RFC3339}

// ErrHeader reports a statement whose header lacks a required column.
var ErrHeader = errors.New("invalid statement header")

const (
	colDate        = "date"
	colDescription = "description"
	colAmount      = "amount"
	colType        = "type"
	colExternalID  = "external_id"
)

// ParseCSV reads a statement with a header naming at least date, description
// and amount; type and external_id are optional. Column order is free. A line
// that cannot be parsed becomes a row with Err set so the import can count it.
func ParseCSV(data []byte, accountID uuid.UUID, currency string) ([]ledger.ImportRow, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ParseCSV: %w: empty file", ErrHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: reading header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: %w", err)
	}

	var rows []ledger.ImportRow
	seen := make(map[string]int)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rows = append(rows, ledger.ImportRow{Line: perr.StartLine, Err: perr})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ParseCSV: %w", err)
		}
		line, _ := r.FieldPos(0)
		if blank(record) {
			continue
		}

		row := parseRecord(record, cols, currency)
		row.Line = line
		if row.Err == nil {
			key := strings.Join([]string{row.Date.Format(dateLayout), row.Amount.Amount().String(), normalizeDescription(row.Description), row.ExternalID}, "|")
			row.Fingerprint = Fingerprint(accountID, row.Date, row.Amount.Amount(), row.Description, row.ExternalID, seen[key])
			seen[key]++
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	var missing []string
	for _, required := range []string{colDate, colDescription, colAmount} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrHeader, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRecord(record []string, cols map[string]int, currency string) ledger.ImportRow {
	var row ledger.ImportRow
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(field(colDate))
	if err != nil {
		row.Err = err
		return row
	}
	amount, err := parseAmount(field(colAmount))
	if err != nil {
		row.Err = err
		return row
	}
	txType, err := parseType(field(colType))
	if err != nil {
		row.Err = err
		return row
	}

	row.Date = date
	row.Amount = money.New(amount, currency)
	row.Description = field(colDescription)
	row.Type = txType
	row.ExternalID = field(colExternalID)
	return row
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseAmount accepts thousands separators, a leading currency sign and
// accounting-style parentheses for negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.NewReplacer(",", "", " ", "", "$", "").Replace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return decimal.Decimal{}, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func parseType(s string) (ledger.TransactionType, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "debit":
		return ledger.TransactionDebit, nil
	case "credit":
		return ledger.TransactionCredit, nil
	case "transfer":
		return ledger.TransactionTransfer, nil
	}
	return "", fmt.Errorf("invalid transaction type %q", s)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
