package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// AccountType is the high-level account classification.
type AccountType string

const (
	AccountTypeBanking    AccountType = "Banking"
	AccountTypeCredit     AccountType = "Credit"
	AccountTypeInvestment AccountType = "Investment"
	AccountTypeProperty   AccountType = "Property"
	AccountTypeLoan       AccountType = "Loan"
)

// AccountSubType refines AccountType.
type AccountSubType string

const (
	SubTypeChequing      AccountSubType = "Chequing"
	SubTypeSavings       AccountSubType = "Savings"
	SubTypeCreditCard    AccountSubType = "CreditCard"
	SubTypeLineOfCredit  AccountSubType = "LineOfCredit"
	SubTypeRRSP          AccountSubType = "RRSP"
	SubTypeTFSA          AccountSubType = "TFSA"
	SubTypeRESP          AccountSubType = "RESP"
	SubTypeLIRA          AccountSubType = "LIRA"
	SubTypeNonRegistered AccountSubType = "NonRegistered"
	SubTypeRealEstate    AccountSubType = "RealEstate"
	SubTypeVehicle       AccountSubType = "Vehicle"
	SubTypeOtherAsset    AccountSubType = "OtherAsset"
	SubTypeMortgage      AccountSubType = "Mortgage"
	SubTypeAutoLoan      AccountSubType = "AutoLoan"
	SubTypeStudentLoan   AccountSubType = "StudentLoan"
	SubTypePersonalLoan  AccountSubType = "PersonalLoan"
)

var subTypesByType = map[AccountType][]AccountSubType{
	AccountTypeBanking:    {SubTypeChequing, SubTypeSavings},
	AccountTypeCredit:     {SubTypeCreditCard, SubTypeLineOfCredit},
	AccountTypeInvestment: {SubTypeRRSP, SubTypeTFSA, SubTypeRESP, SubTypeLIRA, SubTypeNonRegistered},
	AccountTypeProperty:   {SubTypeRealEstate, SubTypeVehicle, SubTypeOtherAsset},
	AccountTypeLoan:       {SubTypeMortgage, SubTypeAutoLoan, SubTypeStudentLoan, SubTypePersonalLoan},
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	_, ok := subTypesByType[t]
	return ok
}

// Allows reports whether sub belongs to t.
func (t AccountType) Allows(sub AccountSubType) bool {
	for _, s := range subTypesByType[t] {
		if s == sub {
			return true
		}
	}
	return false
}

// BalanceSource names what an account's current balance is derived from.
type BalanceSource int

const (
	// BalanceFromTransactions: opening balance plus the running sum of postings.
	BalanceFromTransactions BalanceSource = iota
	// BalanceFromValuations: the latest valuation by effective date.
	BalanceFromValuations
)

func (s BalanceSource) String() string {
	if s == BalanceFromValuations {
		return "valuations"
	}
	return "transactions"
}

const (
	maxAccountNameLen = 200
	openingDateGrace  = 24 * time.Hour
)

// Account owns a currency, an opening balance and a cached current balance.
// OwnerID and Currency never change after creation.
type Account struct {
	Audit

	OwnerID       uuid.UUID      `json:"owner_id"`
	Name          string         `json:"name"`
	Type          AccountType    `json:"account_type"`
	SubType       AccountSubType `json:"account_sub_type"`
	Currency      string         `json:"currency"`
	Institution   string         `json:"institution,omitempty"`
	AccountNumber string         `json:"account_number,omitempty"`
	Notes         string         `json:"notes,omitempty"`

	OpeningBalance money.Money `json:"opening_balance"`
	OpeningDate    time.Time   `json:"opening_date"`

	// CurrentBalance is a materialized cache refreshed only through ApplyBalance.
	CurrentBalance money.Money `json:"current_balance"`

	IsActive bool `json:"is_active"`
	IsShared bool `json:"is_shared"`
}

// AccountParams is the input to NewAccount.
type AccountParams struct {
	OwnerID        uuid.UUID
	Name           string
	Type           AccountType
	SubType        AccountSubType
	Currency       string
	OpeningBalance money.Money
	OpeningDate    time.Time
	Institution    string
	AccountNumber  string
	Notes          string
}

// NewAccount validates p and returns an active account whose current balance
// equals its opening balance.
func NewAccount(p AccountParams) (*Account, error) {
	name := strings.TrimSpace(p.Name)
	verr := &ValidationError{}

	if name == "" {
		verr.add("name", "must not be empty")
	} else if len(name) > maxAccountNameLen {
		verr.add("name", fmt.Sprintf("must be at most %d characters", maxAccountNameLen))
	}
	if !p.Type.Valid() {
		verr.add("account_type", fmt.Sprintf("unknown account type %q", p.Type))
	} else if !p.Type.Allows(p.SubType) {
		verr.add("account_sub_type", fmt.Sprintf("%q is not a %s sub-type", p.SubType, p.Type))
	}
	if err := money.ValidateCurrencyCode(p.Currency); err != nil {
		verr.add("currency", err.Error())
	}
	if p.OpeningDate.IsZero() {
		verr.add("opening_date", "is required")
	} else if p.OpeningDate.After(now().Add(openingDateGrace)) {
		verr.add("opening_date", "cannot be in the future")
	}
	if p.OwnerID == uuid.Nil {
		verr.add("owner_id", "is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if p.OpeningBalance.Currency() != p.Currency {
		return nil, fmt.Errorf("NewAccount: opening balance in %s for %s account: %w",
			p.OpeningBalance.Currency(), p.Currency, ErrCurrencyMismatch)
	}

	return &Account{
		Audit:          newAudit(),
		OwnerID:        p.OwnerID,
		Name:           name,
		Type:           p.Type,
		SubType:        p.SubType,
		Currency:       p.Currency,
		Institution:    strings.TrimSpace(p.Institution),
		AccountNumber:  p.AccountNumber,
		Notes:          p.Notes,
		OpeningBalance: p.OpeningBalance,
		OpeningDate:    p.OpeningDate.UTC(),
		CurrentBalance: p.OpeningBalance,
		IsActive:       true,
	}, nil
}

// Rename trims and sets the account name.
func (a *Account) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", "must not be empty")
	}
	if len(name) > maxAccountNameLen {
		return invalid("name", fmt.Sprintf("must be at most %d characters", maxAccountNameLen))
	}
	a.Name = name
	a.touch()
	return nil
}

func (a *Account) Deactivate() {
	a.IsActive = false
	a.touch()
}

func (a *Account) SetShared(shared bool) {
	a.IsShared = shared
	a.touch()
}

func (a *Account) SetNotes(notes string) {
	a.Notes = notes
	a.touch()
}

// BalanceSource reports which records are authoritative for this account.
func (a *Account) BalanceSource() BalanceSource {
	switch a.Type {
	case AccountTypeProperty, AccountTypeInvestment:
		return BalanceFromValuations
	default:
		return BalanceFromTransactions
	}
}

// ApplyBalance refreshes the cached current balance.
func (a *Account) ApplyBalance(balance money.Money) error {
	if balance.Currency() != a.Currency {
		return fmt.Errorf("ApplyBalance: %s balance on %s account: %w", balance.Currency(), a.Currency, ErrCurrencyMismatch)
	}
	a.CurrentBalance = balance
	a.touch()
	return nil
}

// OwnedBy reports whether userID owns the account.
func (a *Account) OwnedBy(userID uuid.UUID) bool {
	return a.OwnerID == userID
}
