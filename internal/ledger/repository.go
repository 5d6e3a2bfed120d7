package ledger

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AccountRepository persists accounts. Get returns ErrNotFound for missing or
// soft-deleted rows.
type AccountRepository interface {
	InsertAccount(ctx context.Context, a *Account) error
	UpdateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}

// TransactionRepository persists transactions with their splits and tag links.
//
// InsertTransaction must reject a second row carrying an import fingerprint
// already present, deleted rows included, and report it as ErrDuplicateImport.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	QueryTransactions(ctx context.Context, q TransactionQuery) ([]*Transaction, error)
	FingerprintExists(ctx context.Context, fingerprint string) (bool, error)
}

type ValuationRepository interface {
	InsertValuation(ctx context.Context, v *Valuation) error
	ListValuations(ctx context.Context, accountID uuid.UUID) ([]*Valuation, error)
}

// ImportBatchRepository upserts batches so the same batch can be saved at the
// start and at the end of an import.
type ImportBatchRepository interface {
	SaveImportBatch(ctx context.Context, b *ImportBatch) error
	GetImportBatch(ctx context.Context, id uuid.UUID) (*ImportBatch, error)
}

// Store is everything the Service needs from persistence.
type Store interface {
	AccountRepository
	TransactionRepository
	ValuationRepository
	ImportBatchRepository
}

// TransactionQuery selects non-deleted transactions of one account in
// (date DESC, id DESC) order. Zero-valued filters are ignored; Limit 0 means
// no limit.
type TransactionQuery struct {
	AccountID     uuid.UUID
	From          *time.Time
	To            *time.Time
	CategoryID    *uuid.UUID
	ImportBatchID *uuid.UUID
	After         *Cursor
	Limit         int
}

// Matches applies every filter of q to tx. Stores that cannot push filters
// down to a query engine use it directly.
func (q TransactionQuery) Matches(tx *Transaction) bool {
	if tx.IsDeleted || tx.AccountID != q.AccountID {
		return false
	}
	if q.From != nil && tx.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && tx.Date.After(*q.To) {
		return false
	}
	if q.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *q.CategoryID) {
		return false
	}
	if q.ImportBatchID != nil && (tx.ImportBatchID == nil || *tx.ImportBatchID != *q.ImportBatchID) {
		return false
	}
	if q.After != nil && !q.After.Precedes(tx) {
		return false
	}
	return true
}

// SortTransactions orders txs by date descending, then id descending.
func SortTransactions(txs []*Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return sortsBefore(txs[i].Date, txs[i].ID, txs[j].Date, txs[j].ID)
	})
}

// sortsBefore reports whether (dateA, idA) comes first in descending order.
func sortsBefore(dateA time.Time, idA uuid.UUID, dateB time.Time, idB uuid.UUID) bool {
	if !dateA.Equal(dateB) {
		return dateA.After(dateB)
	}
	return bytes.Compare(idA[:], idB[:]) > 0
}
