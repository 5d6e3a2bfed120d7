// Package bigquery exports ledger transactions to an analytics table.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID    string `bigquery:"user_id"`    // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	TransactionType string `bigquery:"transaction_type"` // REQUIRED
	Description     string `bigquery:"description"`      // REQUIRED

	CategoryID bigquery.NullString `bigquery:"category_id"` // NULLABLE
	PayeeID    bigquery.NullString `bigquery:"payee_id"`    // NULLABLE

	IsReconciled  bool `bigquery:"is_reconciled"`
	IsSplitParent bool `bigquery:"is_split_parent"`

	Notes             bigquery.NullString `bigquery:"notes"`              // NULLABLE
	ExternalReference bigquery.NullString `bigquery:"external_reference"` // NULLABLE
	ImportBatchID     bigquery.NullString `bigquery:"import_batch_id"`    // NULLABLE
	LinkedTransferID  bigquery.NullString `bigquery:"linked_transfer_id"` // NULLABLE

	Splits []SplitRow `bigquery:"splits"` // REPEATED RECORD
	Tags   []string   `bigquery:"tags"`   // REPEATED STRING

	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
	UpdatedTS  time.Time `bigquery:"updated_ts"`  // REQUIRED
	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// SplitRow is one live split line nested under its transaction.
type SplitRow struct {
	SplitID    string              `bigquery:"split_id"`
	Amount     *big.Rat            `bigquery:"amount"`
	CategoryID string              `bigquery:"category_id"`
	Notes      bigquery.NullString `bigquery:"notes"`
	Tags       []string            `bigquery:"tags"`
}

// NewTransactionRow flattens tx for export. Soft-deleted splits are left out.
func NewTransactionRow(account *ledger.Account, tx *ledger.Transaction, exportedAt time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:     tx.ID.String(),
		UserID:            account.OwnerID.String(),
		AccountID:         tx.AccountID.String(),
		TransactionDate:   civil.DateOf(tx.Date),
		Amount:            tx.Amount.Amount().Rat(),
		Currency:          tx.Amount.Currency(),
		TransactionType:   string(tx.Type),
		Description:       tx.Description,
		CategoryID:        nullUUID(tx.CategoryID),
		PayeeID:           nullUUID(tx.PayeeID),
		IsReconciled:      tx.IsReconciled,
		Notes:             nullString(tx.Notes),
		ExternalReference: nullString(tx.ExternalID),
		ImportBatchID:     nullUUID(tx.ImportBatchID),
		LinkedTransferID:  nullUUID(tx.LinkedTransferID),
		Tags:              uuidStrings(tx.TagIDs),
		CreatedTS:         tx.CreatedAt,
		UpdatedTS:         tx.UpdatedAt,
		ExportedTS:        exportedAt,
	}
	for _, sp := range tx.Splits {
		if sp.IsDeleted {
			continue
		}
		row.Splits = append(row.Splits, SplitRow{
			SplitID:    sp.ID.String(),
			Amount:     sp.Amount.Amount().Rat(),
			CategoryID: sp.CategoryID.String(),
			Notes:      nullString(sp.Notes),
			Tags:       uuidStrings(sp.TagIDs),
		})
	}
	row.IsSplitParent = len(row.Splits) > 0
	return row
}
