package ledger

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// Valuation is a point-in-time estimated worth of an asset-class account.
// EffectiveDate is when the value applies (may be backdated); RecordedAt is
// when it was entered.
type Valuation struct {
	Audit

	AccountID      uuid.UUID   `json:"account_id"`
	EstimatedValue money.Money `json:"estimated_value"`
	EffectiveDate  civil.Date  `json:"effective_date"`
	RecordedAt     time.Time   `json:"recorded_at"`
	Source         string      `json:"source"`
	Notes          string      `json:"notes,omitempty"`
}

// NewValuation records a valuation for account.
func NewValuation(account *Account, value money.Money, effective civil.Date, source, notes string) (*Valuation, error) {
	source = strings.TrimSpace(source)
	verr := &ValidationError{}
	if source == "" {
		verr.add("source", "must not be empty")
	}
	if !effective.IsValid() {
		verr.add("effective_date", "invalid date")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if value.Currency() != account.Currency {
		return nil, fmt.Errorf("NewValuation: %s value for %s account: %w", value.Currency(), account.Currency, ErrCurrencyMismatch)
	}

	audit := newAudit()
	return &Valuation{
		Audit:          audit,
		AccountID:      account.ID,
		EstimatedValue: value,
		EffectiveDate:  effective,
		RecordedAt:     audit.CreatedAt,
		Source:         source,
		Notes:          notes,
	}, nil
}

// UpdateValue replaces the estimate.
func (v *Valuation) UpdateValue(value money.Money) error {
	if value.Currency() != v.EstimatedValue.Currency() {
		return fmt.Errorf("UpdateValue: %w", ErrCurrencyMismatch)
	}
	v.EstimatedValue = value
	v.touch()
	return nil
}

// LatestValuation returns the non-deleted valuation with the greatest
// EffectiveDate, or nil. Equal dates resolve to the latest RecordedAt, then
// the greatest ID, so the answer never depends on input order.
func LatestValuation(valuations []*Valuation) *Valuation {
	var latest *Valuation
	for _, v := range valuations {
		if v == nil || v.IsDeleted {
			continue
		}
		if latest == nil || newerValuation(v, latest) {
			latest = v
		}
	}
	return latest
}

func newerValuation(a, b *Valuation) bool {
	if a.EffectiveDate != b.EffectiveDate {
		return a.EffectiveDate.After(b.EffectiveDate)
	}
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}
