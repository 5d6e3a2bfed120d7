package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// Split is a categorized portion of a transaction's amount.
type Split struct {
	Audit

	TransactionID uuid.UUID   `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	CategoryID    uuid.UUID   `json:"category_id"`
	Notes         string      `json:"notes,omitempty"`

	// Percentage is a display hint only; it never takes part in sum checks.
	Percentage *decimal.Decimal `json:"percentage,omitempty"`

	TagIDs []uuid.UUID `json:"tag_ids,omitempty"`
}

// NewSplit returns a split line for transactionID.
func NewSplit(transactionID uuid.UUID, amount money.Money, categoryID uuid.UUID, notes string, percentage *decimal.Decimal) (*Split, error) {
	verr := &ValidationError{}
	if transactionID == uuid.Nil {
		verr.add("transaction_id", "is required")
	}
	if categoryID == uuid.Nil {
		verr.add("category_id", "is required")
	}
	if len(notes) > maxNotesLen {
		verr.add("notes", "too long")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return &Split{
		Audit:         newAudit(),
		TransactionID: transactionID,
		Amount:        amount,
		CategoryID:    categoryID,
		Notes:         notes,
		Percentage:    percentage,
	}, nil
}

// SetAmount changes the split amount. No sum check happens here.
func (s *Split) SetAmount(amount money.Money) {
	s.Amount = amount
	s.touch()
}

func (s *Split) SetCategory(categoryID uuid.UUID) {
	s.CategoryID = categoryID
	s.touch()
}

func (s *Split) AddTag(tagID uuid.UUID) {
	if addTag(&s.TagIDs, tagID) {
		s.touch()
	}
}

func (s *Split) RemoveTag(tagID uuid.UUID) {
	if removeTag(&s.TagIDs, tagID) {
		s.touch()
	}
}

func addTag(tags *[]uuid.UUID, id uuid.UUID) bool {
	for _, t := range *tags {
		if t == id {
			return false
		}
	}
	*tags = append(*tags, id)
	return true
}

func removeTag(tags *[]uuid.UUID, id uuid.UUID) bool {
	for i, t := range *tags {
		if t == id {
			*tags = append((*tags)[:i], (*tags)[i+1:]...)
			return true
		}
	}
	return false
}
