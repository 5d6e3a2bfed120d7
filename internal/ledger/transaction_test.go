package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/money"
)

func cad(s string) money.Money {
	return money.New(decimal.RequireFromString(s), "CAD")
}

func newTestTransaction(t *testing.T, amount string) *Transaction {
	t.Helper()
	tx, err := NewTransaction(uuid.New(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), cad(amount), "Groceries", TransactionDebit)
	require.NoError(t, err)
	return tx
}

func addSplit(t *testing.T, tx *Transaction, amount money.Money) *Split {
	t.Helper()
	split, err := NewSplit(tx.ID, amount, uuid.New(), "", nil)
	require.NoError(t, err)
	tx.AddSplit(split)
	return split
}

func TestValidateSplitInvariant(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	addSplit(t, tx, cad("60.00"))
	second := addSplit(t, tx, cad("40.00"))

	assert.True(t, tx.IsSplit())
	assert.True(t, tx.ValidateSplitInvariant())
	assert.NoError(t, tx.Finalize())

	second.SetAmount(cad("30.00"))
	assert.False(t, tx.ValidateSplitInvariant())

	err := tx.Finalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestValidateSplitInvariantNoSplits(t *testing.T) {
	tx := newTestTransaction(t, "100.00")

	assert.False(t, tx.IsSplit())
	assert.True(t, tx.ValidateSplitInvariant())
	assert.NoError(t, tx.Finalize())
}

func TestValidateSplitInvariantIsExact(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	addSplit(t, tx, cad("33.3333"))
	addSplit(t, tx, cad("33.3333"))
	addSplit(t, tx, cad("33.3333"))

	assert.False(t, tx.ValidateSplitInvariant())
}

func TestValidateSplitInvariantSkipsDeletedSplits(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	addSplit(t, tx, cad("60.00"))
	addSplit(t, tx, cad("40.00"))
	stale := addSplit(t, tx, cad("25.00"))

	assert.False(t, tx.ValidateSplitInvariant())

	stale.SoftDelete()
	assert.True(t, tx.ValidateSplitInvariant())
	assert.NoError(t, tx.Finalize())
}

func TestAllSplitsDeletedIsUnsplit(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	first := addSplit(t, tx, cad("60.00"))
	second := addSplit(t, tx, cad("40.00"))

	first.SoftDelete()
	second.SoftDelete()

	assert.False(t, tx.IsSplit())
	assert.True(t, tx.ValidateSplitInvariant())
	assert.NoError(t, tx.Finalize())
}

func TestSplitCurrencyMustMatchTransaction(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	addSplit(t, tx, cad("60.00"))
	addSplit(t, tx, money.New(decimal.RequireFromString("40.00"), "USD"))

	assert.False(t, tx.ValidateSplitInvariant())

	err := tx.Finalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))
	assert.False(t, errors.Is(err, ErrInvariantViolation))
}

func TestFinalizeRejectsForeignSplit(t *testing.T) {
	tx := newTestTransaction(t, "10.00")
	split, err := NewSplit(uuid.New(), cad("10.00"), uuid.New(), "", nil)
	require.NoError(t, err)
	tx.AddSplit(split)

	err = tx.Finalize()
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestFinalizeNeverAdjustsAmounts(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	split := addSplit(t, tx, cad("99.99"))

	require.Error(t, tx.Finalize())
	assert.True(t, tx.Amount.Equal(cad("100.00")))
	assert.True(t, split.Amount.Equal(cad("99.99")))
}

func TestClearSplits(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	addSplit(t, tx, cad("1.00"))
	tx.ClearSplits()

	assert.False(t, tx.IsSplit())
	assert.True(t, tx.ValidateSplitInvariant())
}

func TestSplitPercentageIsIgnoredBySum(t *testing.T) {
	tx := newTestTransaction(t, "100.00")
	pct := decimal.RequireFromString("90")
	split, err := NewSplit(tx.ID, cad("100.00"), uuid.New(), "", &pct)
	require.NoError(t, err)
	tx.AddSplit(split)

	assert.True(t, tx.ValidateSplitInvariant())
}

func TestNewTransactionValidation(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		accountID   uuid.UUID
		date        time.Time
		description string
		txType      TransactionType
		wantField   string
	}{
		{"missing account", uuid.Nil, date, "Rent", TransactionDebit, "account_id"},
		{"missing date", uuid.New(), time.Time{}, "Rent", TransactionDebit, "date"},
		{"blank description", uuid.New(), date, "   ", TransactionDebit, "description"},
		{"long description", uuid.New(), date, strings.Repeat("x", 501), TransactionDebit, "description"},
		{"bad type", uuid.New(), date, "Rent", TransactionType("Refund"), "transaction_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction(tt.accountID, tt.date, cad("1.00"), tt.description, tt.txType)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}
}

func TestNewTransactionTrimsAndNormalizes(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	tx, err := NewTransaction(uuid.New(), time.Date(2024, 3, 1, 20, 0, 0, 0, loc), cad("5"), "  Coffee  ", TransactionDebit)
	require.NoError(t, err)

	assert.Equal(t, "Coffee", tx.Description)
	assert.Equal(t, time.UTC, tx.Date.Location())
	assert.Equal(t, 2, tx.Date.Day())
}

func TestTransactionMutatorsStampUpdatedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	restore := FreezeClock(created)
	tx := newTestTransaction(t, "10.00")
	restore()

	category := uuid.New()
	tests := []struct {
		name   string
		mutate func(t *testing.T, tx *Transaction)
	}{
		{"SetDate", func(t *testing.T, tx *Transaction) { tx.SetDate(created.AddDate(0, 0, 1)) }},
		{"SetAmount", func(t *testing.T, tx *Transaction) { tx.SetAmount(cad("11.00")) }},
		{"SetDescription", func(t *testing.T, tx *Transaction) { require.NoError(t, tx.SetDescription("Other")) }},
		{"SetCategory", func(t *testing.T, tx *Transaction) { tx.SetCategory(&category) }},
		{"SetPayee", func(t *testing.T, tx *Transaction) { tx.SetPayee(&category) }},
		{"SetNotes", func(t *testing.T, tx *Transaction) { require.NoError(t, tx.SetNotes("note")) }},
		{"SetReconciled", func(t *testing.T, tx *Transaction) { tx.SetReconciled(true) }},
		{"LinkTransfer", func(t *testing.T, tx *Transaction) { tx.LinkTransfer(uuid.New()) }},
		{"AddTag", func(t *testing.T, tx *Transaction) { tx.AddTag(uuid.New()) }},
		{"AddSplit", func(t *testing.T, tx *Transaction) { addSplit(t, tx, cad("1.00")) }},
		{"ClearSplits", func(t *testing.T, tx *Transaction) { tx.ClearSplits() }},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := created.Add(time.Duration(i+1) * time.Minute)
			restore := FreezeClock(at)
			defer restore()

			tt.mutate(t, tx)
			assert.Equal(t, at, tx.UpdatedAt)
			assert.Equal(t, created, tx.CreatedAt)
		})
	}
}

func TestTagsAreDeduplicated(t *testing.T) {
	tx := newTestTransaction(t, "10.00")
	tag := uuid.New()
	tx.AddTag(tag)
	tx.AddTag(tag)
	assert.Len(t, tx.TagIDs, 1)

	tx.RemoveTag(tag)
	assert.Empty(t, tx.TagIDs)
}

func TestImportFingerprintLength(t *testing.T) {
	tx := newTestTransaction(t, "10.00")
	batch := uuid.New()

	require.NoError(t, tx.SetImportFingerprint(strings.Repeat("a", MaxFingerprintLen), &batch))
	err := tx.SetImportFingerprint(strings.Repeat("a", MaxFingerprintLen+1), &batch)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSoftDelete(t *testing.T) {
	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	restore := FreezeClock(first)
	defer restore()

	tx := newTestTransaction(t, "10.00")
	tx.SoftDelete()
	require.True(t, tx.IsDeleted)
	require.NotNil(t, tx.DeletedAt)
	assert.Equal(t, first, *tx.DeletedAt)

	second := first.Add(time.Hour)
	defer FreezeClock(second)()
	tx.SoftDelete()
	assert.True(t, tx.IsDeleted)
	assert.Equal(t, second, tx.UpdatedAt)
	assert.Equal(t, first, tx.CreatedAt)
}
