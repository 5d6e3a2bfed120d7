// Package memstore is an in-memory ledger.Store. It is safe for concurrent
// use; data is lost when the process exits.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// Store keeps copies of every entity so callers cannot mutate stored state.
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*ledger.Account
	transactions map[uuid.UUID]*ledger.Transaction
	valuations   map[uuid.UUID]*ledger.Valuation
	batches      map[uuid.UUID]*ledger.ImportBatch

	// fingerprints is the unique index on import fingerprints. Entries are
	// never removed, soft-deleted owners included.
	fingerprints map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]*ledger.Account),
		transactions: make(map[uuid.UUID]*ledger.Transaction),
		valuations:   make(map[uuid.UUID]*ledger.Valuation),
		batches:      make(map[uuid.UUID]*ledger.ImportBatch),
		fingerprints: make(map[string]uuid.UUID),
	}
}

func (s *Store) InsertAccount(ctx context.Context, a *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return fmt.Errorf("InsertAccount: account %s already exists", a.ID)
	}
	acc := *a
	s.accounts[a.ID] = &acc
	return nil
}

// UpdateAccount saves a. Owner and currency are immutable.
func (s *Store) UpdateAccount(ctx context.Context, a *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.accounts[a.ID]
	if !exists {
		return fmt.Errorf("UpdateAccount: account %s: %w", a.ID, ledger.ErrNotFound)
	}
	if stored.OwnerID != a.OwnerID || stored.Currency != a.Currency {
		return fmt.Errorf("UpdateAccount: account %s: owner and currency cannot change", a.ID)
	}
	acc := *a
	s.accounts[a.ID] = &acc
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.accounts[id]
	if !exists || a.IsDeleted {
		return nil, fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
	}
	acc := *a
	return &acc, nil
}

// InsertTransaction stores tx and claims its fingerprint.
func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return fmt.Errorf("InsertTransaction: transaction %s already exists", tx.ID)
	}
	if err := s.claimFingerprint(tx); err != nil {
		return err
	}
	s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.transactions[tx.ID]
	if !exists {
		return fmt.Errorf("UpdateTransaction: transaction %s: %w", tx.ID, ledger.ErrNotFound)
	}
	if stored.AccountID != tx.AccountID {
		return fmt.Errorf("UpdateTransaction: transaction %s: account cannot change", tx.ID)
	}
	if err := s.claimFingerprint(tx); err != nil {
		return err
	}
	s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

// claimFingerprint must be called with the write lock held.
func (s *Store) claimFingerprint(tx *ledger.Transaction) error {
	if tx.ImportFingerprint == "" {
		return nil
	}
	owner, taken := s.fingerprints[tx.ImportFingerprint]
	if taken && owner != tx.ID {
		return fmt.Errorf("fingerprint %q held by transaction %s: %w", tx.ImportFingerprint, owner, ledger.ErrDuplicateImport)
	}
	s.fingerprints[tx.ImportFingerprint] = tx.ID
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists || tx.IsDeleted {
		return nil, fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
	}
	return copyTransaction(tx), nil
}

func (s *Store) QueryTransactions(ctx context.Context, q ledger.TransactionQuery) ([]*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var result []*ledger.Transaction
	for _, tx := range s.transactions {
		if q.Matches(tx) {
			result = append(result, copyTransaction(tx))
		}
	}
	s.mu.RUnlock()

	ledger.SortTransactions(result)
	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *Store) FingerprintExists(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.fingerprints[fingerprint]
	return taken, nil
}

func (s *Store) InsertValuation(ctx context.Context, v *ledger.Valuation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.valuations[v.ID]; exists {
		return fmt.Errorf("InsertValuation: valuation %s already exists", v.ID)
	}
	val := *v
	s.valuations[v.ID] = &val
	return nil
}

// ListValuations returns every valuation of the account, deleted ones
// included; LatestValuation skips those.
func (s *Store) ListValuations(ctx context.Context, accountID uuid.UUID) ([]*ledger.Valuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ledger.Valuation
	for _, v := range s.valuations {
		if v.AccountID == accountID {
			val := *v
			result = append(result, &val)
		}
	}
	return result, nil
}

func (s *Store) SaveImportBatch(ctx context.Context, b *ledger.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := *b
	s.batches[b.ID] = &batch
	return nil
}

func (s *Store) GetImportBatch(ctx context.Context, id uuid.UUID) (*ledger.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.batches[id]
	if !exists || b.IsDeleted {
		return nil, fmt.Errorf("import batch %s: %w", id, ledger.ErrNotFound)
	}
	batch := *b
	return &batch, nil
}

// TransactionCount counts stored transactions, soft-deleted ones included.
func (s *Store) TransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions)
}

func copyTransaction(tx *ledger.Transaction) *ledger.Transaction {
	c := *tx
	if tx.Splits != nil {
		c.Splits = make([]*ledger.Split, len(tx.Splits))
		for i, sp := range tx.Splits {
			sc := *sp
			sc.TagIDs = append([]uuid.UUID(nil), sp.TagIDs...)
			c.Splits[i] = &sc
		}
	}
	c.TagIDs = append([]uuid.UUID(nil), tx.TagIDs...)
	return &c
}

// Ensure Store implements ledger.Store.
var _ ledger.Store = (*Store)(nil)
