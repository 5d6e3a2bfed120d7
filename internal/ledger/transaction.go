package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionDebit    TransactionType = "Debit"
	TransactionCredit   TransactionType = "Credit"
	TransactionTransfer TransactionType = "Transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDebit, TransactionCredit, TransactionTransfer:
		return true
	}
	return false
}

const (
	maxDescriptionLen = 500
	maxNotesLen       = 2000
	maxExternalIDLen  = 200

	// MaxFingerprintLen bounds an import fingerprint.
	MaxFingerprintLen = 512
)

// Transaction is a single ledger entry, optionally decomposed into splits.
// AccountID never changes after creation.
type Transaction struct {
	Audit

	AccountID   uuid.UUID       `json:"account_id"`
	Date        time.Time       `json:"date"`
	Amount      money.Money     `json:"amount"`
	Description string          `json:"description"`
	Type        TransactionType `json:"transaction_type"`

	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	PayeeID    *uuid.UUID `json:"payee_id,omitempty"`

	IsReconciled bool   `json:"is_reconciled"`
	Notes        string `json:"notes,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`

	ImportFingerprint string     `json:"import_fingerprint,omitempty"`
	ImportBatchID     *uuid.UUID `json:"import_batch_id,omitempty"`
	LinkedTransferID  *uuid.UUID `json:"linked_transfer_id,omitempty"`

	Splits []*Split     `json:"splits,omitempty"`
	TagIDs []uuid.UUID `json:"tag_ids,omitempty"`
}

// NewTransaction validates the required fields and returns an unsplit
// transaction. The date is stored in UTC.
func NewTransaction(accountID uuid.UUID, date time.Time, amount money.Money, description string, txType TransactionType) (*Transaction, error) {
	description = strings.TrimSpace(description)
	verr := &ValidationError{}
	if accountID == uuid.Nil {
		verr.add("account_id", "is required")
	}
	if date.IsZero() {
		verr.add("date", "is required")
	}
	validateDescription(verr, description)
	if !txType.Valid() {
		verr.add("transaction_type", fmt.Sprintf("invalid value %q", txType))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	return &Transaction{
		Audit:       newAudit(),
		AccountID:   accountID,
		Date:        date.UTC(),
		Amount:      amount,
		Description: description,
		Type:        txType,
	}, nil
}

func validateDescription(verr *ValidationError, description string) {
	if description == "" {
		verr.add("description", "must not be empty")
	} else if len(description) > maxDescriptionLen {
		verr.add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
	}
}

// IsSplit is true when the transaction carries live split lines. A
// transaction whose splits were all soft-deleted is unsplit again.
func (t *Transaction) IsSplit() bool { return len(t.liveSplits()) > 0 }

func (t *Transaction) SetDate(date time.Time) {
	t.Date = date.UTC()
	t.touch()
}

// SetAmount changes the total. Existing splits are left alone and may no
// longer balance until Finalize is satisfied again.
func (t *Transaction) SetAmount(amount money.Money) {
	t.Amount = amount
	t.touch()
}

func (t *Transaction) SetDescription(description string) error {
	description = strings.TrimSpace(description)
	verr := &ValidationError{}
	validateDescription(verr, description)
	if err := verr.orNil(); err != nil {
		return err
	}
	t.Description = description
	t.touch()
	return nil
}

func (t *Transaction) SetCategory(categoryID *uuid.UUID) {
	t.CategoryID = categoryID
	t.touch()
}

func (t *Transaction) SetPayee(payeeID *uuid.UUID) {
	t.PayeeID = payeeID
	t.touch()
}

func (t *Transaction) SetNotes(notes string) error {
	if len(notes) > maxNotesLen {
		return invalid("notes", fmt.Sprintf("must be at most %d characters", maxNotesLen))
	}
	t.Notes = notes
	t.touch()
	return nil
}

func (t *Transaction) SetExternalID(externalID string) error {
	if len(externalID) > maxExternalIDLen {
		return invalid("external_id", fmt.Sprintf("must be at most %d characters", maxExternalIDLen))
	}
	t.ExternalID = externalID
	t.touch()
	return nil
}

func (t *Transaction) SetReconciled(reconciled bool) {
	t.IsReconciled = reconciled
	t.touch()
}

// LinkTransfer points a transfer at its counterpart on the other account.
func (t *Transaction) LinkTransfer(counterpartID uuid.UUID) {
	t.LinkedTransferID = &counterpartID
	t.touch()
}

// SetImportFingerprint tags the transaction as imported. Uniqueness is the
// deduplicator's and the store's business.
func (t *Transaction) SetImportFingerprint(fingerprint string, batchID *uuid.UUID) error {
	if len(fingerprint) > MaxFingerprintLen {
		return invalid("import_fingerprint", fmt.Sprintf("must be at most %d characters", MaxFingerprintLen))
	}
	t.ImportFingerprint = fingerprint
	t.ImportBatchID = batchID
	t.touch()
	return nil
}

func (t *Transaction) AddTag(tagID uuid.UUID) {
	if addTag(&t.TagIDs, tagID) {
		t.touch()
	}
}

func (t *Transaction) RemoveTag(tagID uuid.UUID) {
	if removeTag(&t.TagIDs, tagID) {
		t.touch()
	}
}

// AddSplit stages a split line. The sum is not checked here; a transaction
// may hold an unbalanced split set until Finalize.
func (t *Transaction) AddSplit(split *Split) {
	t.Splits = append(t.Splits, split)
	t.touch()
}

// ClearSplits drops every staged split.
func (t *Transaction) ClearSplits() {
	t.Splits = nil
	t.touch()
}

// liveSplits returns the splits that are not soft-deleted.
func (t *Transaction) liveSplits() []*Split {
	live := make([]*Split, 0, len(t.Splits))
	for _, s := range t.Splits {
		if s != nil && !s.IsDeleted {
			live = append(live, s)
		}
	}
	return live
}

// ValidateSplitInvariant reports whether the non-deleted splits sum exactly to
// the transaction amount. It is trivially true with no live splits and false
// when a live split is in another currency.
func (t *Transaction) ValidateSplitInvariant() bool {
	if !t.IsSplit() {
		return true
	}
	total, err := t.splitTotal()
	if err != nil {
		return false
	}
	return total.Equal(t.Amount)
}

func (t *Transaction) splitTotal() (money.Money, error) {
	live := t.liveSplits()
	amounts := make([]money.Money, 0, len(live))
	for _, s := range live {
		amounts = append(amounts, s.Amount)
	}
	return money.Sum(t.Amount.Currency(), amounts...)
}

// Finalize is the commit gate for a staged split set. It fails closed and
// never adjusts amounts.
func (t *Transaction) Finalize() error {
	if !t.IsSplit() {
		return nil
	}
	for _, s := range t.liveSplits() {
		if s.TransactionID != t.ID {
			return invalid("splits", fmt.Sprintf("split %s belongs to transaction %s", s.ID, s.TransactionID))
		}
	}
	total, err := t.splitTotal()
	if err != nil {
		return fmt.Errorf("Finalize: transaction %s: %w", t.ID, err)
	}
	if !total.Equal(t.Amount) {
		return fmt.Errorf("%w: splits of transaction %s sum to %s, want %s",
			ErrInvariantViolation, t.ID, total, t.Amount)
	}
	return nil
}
