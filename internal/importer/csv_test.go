package importer

import (
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const statement = `Date,Description,Amount,Type,External_ID
2024-01-05,Coffee,-4.50,,
2024-01-05,Coffee,-4.50,,
2024/01/06,"Salary, January","2,500.00",credit,PAY-1
2024-01-07,Refund,(12.00),Debit,

not-a-date,Broken,1.00,,
2024-01-08,Bad amount,abc,,
2024-01-09,Bad type,1.00,sideways,
`

func TestParseCSV(t *testing.T) {
	accountID := uuid.New()
	rows, err := ParseCSV([]byte(statement), accountID, "CAD")
	require.NoError(t, err)
	require.Len(t, rows, 7)

	coffee1, coffee2 := rows[0], rows[1]
	require.NoError(t, coffee1.Err)
	assert.Equal(t, 2, coffee1.Line)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), coffee1.Date)
	assert.True(t, coffee1.Amount.Amount().Equal(decimal.RequireFromString("-4.50")))
	assert.Equal(t, "CAD", coffee1.Amount.Currency())
	assert.Equal(t, ledger.TransactionType(""), coffee1.Type)
	assert.NotEmpty(t, coffee1.Fingerprint)
	assert.NotEqual(t, coffee1.Fingerprint, coffee2.Fingerprint, "identical lines stay distinct")

	salary := rows[2]
	require.NoError(t, salary.Err)
	assert.Equal(t, "Salary, January", salary.Description)
	assert.True(t, salary.Amount.Amount().Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, ledger.TransactionCredit, salary.Type)
	assert.Equal(t, "PAY-1", salary.ExternalID)

	refund := rows[3]
	require.NoError(t, refund.Err)
	assert.True(t, refund.Amount.Amount().Equal(decimal.RequireFromString("-12")))
	assert.Equal(t, ledger.TransactionDebit, refund.Type)

	for _, bad := range rows[4:] {
		assert.Error(t, bad.Err)
		assert.Empty(t, bad.Fingerprint)
	}
	assert.Equal(t, 7, rows[4].Line)
}

func TestParseCSVMalformedRecord(t *testing.T) {
	data := "date,description,amount\n" +
		"2024-01-05,Coffee,-4.50\n" +
		"2024-01-06,Cof\"fee,-1.00\n" +
		"2024-01-07,Lunch,-12.00\n"

	rows, err := ParseCSV([]byte(data), uuid.New(), "CAD")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, rows[0].Err)

	var perr *csv.ParseError
	require.True(t, errors.As(rows[1].Err, &perr))
	assert.True(t, errors.Is(rows[1].Err, csv.ErrBareQuote))
	assert.Equal(t, 3, rows[1].Line)
	assert.Empty(t, rows[1].Fingerprint)

	require.NoError(t, rows[2].Err)
	assert.Equal(t, 4, rows[2].Line)
	assert.Equal(t, "Lunch", rows[2].Description)
}

func TestParseCSVStableFingerprints(t *testing.T) {
	accountID := uuid.New()
	first, err := ParseCSV([]byte(statement), accountID, "CAD")
	require.NoError(t, err)
	second, err := ParseCSV([]byte(statement), accountID, "CAD")
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].Fingerprint, second[i].Fingerprint)
	}

	other, err := ParseCSV([]byte(statement), uuid.New(), "CAD")
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Fingerprint, other[0].Fingerprint)
}

func TestParseCSVHeader(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing amount", "date,description\n2024-01-01,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.data), uuid.New(), "CAD")
			assert.True(t, errors.Is(err, ErrHeader))
		})
	}

	rows, err := ParseCSV([]byte("\xef\xbb\xbfamount,date,description\n1.00,2024-01-01,x\n"), uuid.New(), "CAD")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NoError(t, rows[0].Err)
}

func TestFingerprintNormalizesDescription(t *testing.T) {
	accountID := uuid.New()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("-4.50")

	a := Fingerprint(accountID, date, amount, "  Coffee   Shop ", "", 0)
	b := Fingerprint(accountID, date, amount, "coffee shop", "", 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.LessOrEqual(t, len(a), ledger.MaxFingerprintLen)

	assert.NotEqual(t, a, Fingerprint(accountID, date, amount, "coffee shop", "", 1))
}
