package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Exporter ships a page of an account's transactions to an external sink.
type Exporter interface {
	ExportTransactions(ctx context.Context, account *Account, txs []*Transaction) error
}

// Service sequences the ledger core for one request at a time. It owns no
// state besides its collaborators.
type Service struct {
	store    Store
	pager    *TransactionPager
	dedup    *ImportDeduplicator
	exporter Exporter

	cache           FingerprintCache
	defaultPageSize int
	maxPageSize     int
}

type ServiceOption func(*Service)

// WithFingerprintCache puts cache in front of the store's fingerprint lookup.
func WithFingerprintCache(cache FingerprintCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

func WithExporter(e Exporter) ServiceOption {
	return func(s *Service) { s.exporter = e }
}

// WithPageSizes overrides the size used for non-positive requests and the
// upper clamp.
func WithPageSizes(defaultSize, maxSize int) ServiceOption {
	return func(s *Service) {
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
	}
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:           store,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
	s.pager = NewTransactionPager(store)
	s.dedup = NewImportDeduplicator(store, s.cache)
	return s
}

// ClampPageSize maps a caller's page size into [1, max].
func (s *Service) ClampPageSize(size int) int {
	if size <= 0 {
		return s.defaultPageSize
	}
	if size > s.maxPageSize {
		return s.maxPageSize
	}
	return size
}

// CreateAccount validates p and persists a new account.
func (s *Service) CreateAccount(ctx context.Context, p AccountParams) (*Account, error) {
	account, err := NewAccount(p)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("CreateAccount: inserting account: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", account.ID.String()).
		Str("account_type", string(account.Type)).
		Str("currency", account.Currency).
		Msg("Created account")
	return account, nil
}

// GetAccount loads an account owned by userID.
func (s *Service) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	if !account.OwnedBy(userID) {
		return nil, fmt.Errorf("GetAccount: account %s: %w", accountID, ErrForbidden)
	}
	return account, nil
}

// SplitInput is one line of a split set supplied by a caller.
type SplitInput struct {
	Amount     money.Money
	CategoryID uuid.UUID
	Notes      string
	Percentage *decimal.Decimal
	TagIDs     []uuid.UUID
}

// TransactionInput is everything a caller supplies to create a transaction.
type TransactionInput struct {
	AccountID   uuid.UUID
	Date        time.Time
	Amount      money.Money
	Description string
	Type        TransactionType
	CategoryID  *uuid.UUID
	PayeeID     *uuid.UUID
	Notes       string
	ExternalID  string
	Splits      []SplitInput
	TagIDs      []uuid.UUID
}

// CreateTransaction builds, finalizes and persists a transaction on an account
// owned by userID. The account's cached balance is left for RecomputeBalance.
func (s *Service) CreateTransaction(ctx context.Context, userID uuid.UUID, in TransactionInput) (*Transaction, error) {
	account, err := s.GetAccount(ctx, userID, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	if in.Amount.Currency() != account.Currency {
		return nil, fmt.Errorf("CreateTransaction: %s amount on %s account: %w", in.Amount.Currency(), account.Currency, ErrCurrencyMismatch)
	}

	tx, err := NewTransaction(account.ID, in.Date, in.Amount, in.Description, in.Type)
	if err != nil {
		return nil, err
	}
	tx.CategoryID = in.CategoryID
	tx.PayeeID = in.PayeeID
	if err := tx.SetNotes(in.Notes); err != nil {
		return nil, err
	}
	if err := tx.SetExternalID(in.ExternalID); err != nil {
		return nil, err
	}
	for _, tag := range in.TagIDs {
		tx.AddTag(tag)
	}
	if err := stageSplits(tx, in.Splits); err != nil {
		return nil, err
	}
	if err := tx.Finalize(); err != nil {
		return nil, err
	}

	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: inserting transaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", account.ID.String()).
		Str("transaction_id", tx.ID.String()).
		Int("split_count", len(tx.Splits)).
		Msg("Created transaction")
	return tx, nil
}

func stageSplits(tx *Transaction, inputs []SplitInput) error {
	for i, in := range inputs {
		split, err := NewSplit(tx.ID, in.Amount, in.CategoryID, in.Notes, in.Percentage)
		if err != nil {
			return fmt.Errorf("split %d: %w", i, err)
		}
		for _, tag := range in.TagIDs {
			split.AddTag(tag)
		}
		tx.AddSplit(split)
	}
	return nil
}

// GetTransaction loads a live transaction whose account userID owns.
func (s *Service) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	if _, err := s.GetAccount(ctx, userID, tx.AccountID); err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// TransactionUpdate carries the fields to change; nil means keep. A non-nil
// Splits replaces the whole split set, including with an empty one.
type TransactionUpdate struct {
	Date         *time.Time
	Amount       *money.Money
	Description  *string
	CategoryID   *uuid.UUID
	PayeeID      *uuid.UUID
	Notes        *string
	IsReconciled *bool
	Splits       *[]SplitInput
}

// UpdateTransaction applies u and re-runs the split gate before saving.
// Replaced splits are soft-deleted, not dropped.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id uuid.UUID, u TransactionUpdate) (*Transaction, error) {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	if u.Date != nil {
		tx.SetDate(*u.Date)
	}
	if u.Amount != nil {
		if u.Amount.Currency() != tx.Amount.Currency() {
			return nil, fmt.Errorf("UpdateTransaction: %s amount on %s transaction: %w", u.Amount.Currency(), tx.Amount.Currency(), ErrCurrencyMismatch)
		}
		tx.SetAmount(*u.Amount)
	}
	if u.Description != nil {
		if err := tx.SetDescription(*u.Description); err != nil {
			return nil, err
		}
	}
	if u.CategoryID != nil {
		tx.SetCategory(u.CategoryID)
	}
	if u.PayeeID != nil {
		tx.SetPayee(u.PayeeID)
	}
	if u.Notes != nil {
		if err := tx.SetNotes(*u.Notes); err != nil {
			return nil, err
		}
	}
	if u.IsReconciled != nil {
		tx.SetReconciled(*u.IsReconciled)
	}
	if u.Splits != nil {
		for _, split := range tx.liveSplits() {
			split.SoftDelete()
		}
		if err := stageSplits(tx, *u.Splits); err != nil {
			return nil, err
		}
	}
	if err := tx.Finalize(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: saving transaction: %w", err)
	}
	return tx, nil
}

// DeleteTransaction soft-deletes a transaction. Its import fingerprint stays
// reserved.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	tx.SoftDelete()
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("DeleteTransaction: saving transaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", tx.AccountID.String()).
		Str("transaction_id", tx.ID.String()).
		Msg("Soft-deleted transaction")
	return nil
}

// ListTransactions checks ownership, clamps the page size and returns one page.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, req PageRequest) (*Page, error) {
	if _, err := s.GetAccount(ctx, userID, req.AccountID); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	req.PageSize = s.ClampPageSize(req.PageSize)
	return s.pager.GetPage(ctx, req)
}

// RecordValuation adds a valuation to a valuation-sourced account.
func (s *Service) RecordValuation(ctx context.Context, userID, accountID uuid.UUID, value money.Money, effective civil.Date, source, notes string) (*Valuation, error) {
	account, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("RecordValuation: %w", err)
	}
	if account.BalanceSource() != BalanceFromValuations {
		return nil, invalid("account_type", fmt.Sprintf("%s accounts are balanced from transactions", account.Type))
	}
	v, err := NewValuation(account, value, effective, source, notes)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertValuation(ctx, v); err != nil {
		return nil, fmt.Errorf("RecordValuation: inserting valuation: %w", err)
	}
	return v, nil
}

// LatestValuation returns the account's authoritative valuation, or
// ErrNotFound when it has none.
func (s *Service) LatestValuation(ctx context.Context, userID, accountID uuid.UUID) (*Valuation, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return nil, fmt.Errorf("LatestValuation: %w", err)
	}
	valuations, err := s.store.ListValuations(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("LatestValuation: listing valuations: %w", err)
	}
	latest := LatestValuation(valuations)
	if latest == nil {
		return nil, fmt.Errorf("LatestValuation: account %s: %w", accountID, ErrNotFound)
	}
	return latest, nil
}

// RecomputeBalance rederives the account's cached balance from its
// authoritative source and saves it.
func (s *Service) RecomputeBalance(ctx context.Context, userID, accountID uuid.UUID) (money.Money, error) {
	account, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return money.Money{}, fmt.Errorf("RecomputeBalance: %w", err)
	}

	var (
		txs        []*Transaction
		valuations []*Valuation
	)
	if account.BalanceSource() == BalanceFromValuations {
		valuations, err = s.store.ListValuations(ctx, accountID)
	} else {
		txs, err = s.store.QueryTransactions(ctx, TransactionQuery{AccountID: accountID})
	}
	if err != nil {
		return money.Money{}, fmt.Errorf("RecomputeBalance: loading %s: %w", account.BalanceSource(), err)
	}

	balance, err := DeriveBalance(account, txs, valuations)
	if err != nil {
		return money.Money{}, err
	}
	if err := account.ApplyBalance(balance); err != nil {
		return money.Money{}, err
	}
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return money.Money{}, fmt.Errorf("RecomputeBalance: saving account: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", accountID.String()).
		Str("source", account.BalanceSource().String()).
		Str("balance", balance.String()).
		Msg("Recomputed balance")
	return balance, nil
}

// ImportRow is one parsed statement line. Err carries a parse failure for the
// line; Fingerprint is computed by the parser.
type ImportRow struct {
	Line        int
	Date        time.Time
	Amount      money.Money
	Description string
	Type        TransactionType
	ExternalID  string
	Fingerprint string
	Err         error
}

// ImportRequest is a parsed statement destined for one account.
type ImportRequest struct {
	AccountID  uuid.UUID
	FileName   string
	FileFormat string
	Rows       []ImportRow
}

// ImportTransactions ingests rows at most once each. Duplicates and bad rows
// are counted on the batch; an infrastructure failure fails the batch and
// stops the import.
func (s *Service) ImportTransactions(ctx context.Context, userID uuid.UUID, req ImportRequest) (*ImportBatch, error) {
	account, err := s.GetAccount(ctx, userID, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("ImportTransactions: %w", err)
	}
	batch, err := NewImportBatch(userID, account.ID, req.FileName, req.FileFormat)
	if err != nil {
		return nil, err
	}
	if err := batch.Start(); err != nil {
		return nil, err
	}
	if err := s.store.SaveImportBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("ImportTransactions: saving batch: %w", err)
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"account_id": account.ID.String(),
		"batch_id":   batch.ID.String(),
	})
	log.Info().Str("file_name", batch.FileName).Int("row_count", len(req.Rows)).Msg("Starting import")

	var succeeded, errored, duplicates int
	for _, row := range req.Rows {
		err := s.importRow(ctx, account, batch, row)
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDuplicateImport):
			duplicates++
			log.Debug().Int("line", row.Line).Str("fingerprint", row.Fingerprint).Msg("Skipping duplicate row")
		case errors.Is(err, ErrValidation), errors.Is(err, ErrCurrencyMismatch), errors.Is(err, ErrInvariantViolation):
			errored++
			batch.AppendErrorDetail(fmt.Sprintf("line %d: %v", row.Line, err))
		default:
			log.Error().Err(err).Int("line", row.Line).Msg("Import failed")
			if ferr := batch.Fail(fmt.Sprintf("line %d: %v", row.Line, err)); ferr != nil {
				return batch, fmt.Errorf("ImportTransactions: failing batch: %w", ferr)
			}
			if serr := s.store.SaveImportBatch(ctx, batch); serr != nil {
				log.Error().Err(serr).Msg("Failed to save failed batch")
			}
			return batch, fmt.Errorf("ImportTransactions: line %d: %w", row.Line, err)
		}
	}

	if err := batch.Complete(len(req.Rows), succeeded, errored, duplicates); err != nil {
		return batch, err
	}
	if err := s.store.SaveImportBatch(ctx, batch); err != nil {
		return batch, fmt.Errorf("ImportTransactions: saving batch: %w", err)
	}

	log.Info().
		Str("status", string(batch.Status)).
		Int("success_count", succeeded).
		Int("error_count", errored).
		Int("duplicate_count", duplicates).
		Msg("Import finished")
	return batch, nil
}

func (s *Service) importRow(ctx context.Context, account *Account, batch *ImportBatch, row ImportRow) error {
	if row.Err != nil {
		if errors.Is(row.Err, ErrValidation) {
			return row.Err
		}
		return fmt.Errorf("%w: %v", ErrValidation, row.Err)
	}
	dup, err := s.dedup.IsDuplicate(ctx, row.Fingerprint)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateImport
	}
	if row.Amount.Currency() != account.Currency {
		return fmt.Errorf("%s amount on %s account: %w", row.Amount.Currency(), account.Currency, ErrCurrencyMismatch)
	}

	txType := row.Type
	if txType == "" {
		txType = TransactionDebit
		if row.Amount.IsPositive() {
			txType = TransactionCredit
		}
	}
	tx, err := NewTransaction(account.ID, row.Date, row.Amount, row.Description, txType)
	if err != nil {
		return err
	}
	if err := tx.SetExternalID(row.ExternalID); err != nil {
		return err
	}
	batchID := batch.ID
	if err := tx.SetImportFingerprint(row.Fingerprint, &batchID); err != nil {
		return err
	}
	if err := tx.Finalize(); err != nil {
		return err
	}
	return s.dedup.Register(ctx, tx)
}

// RollBackImport soft-deletes every transaction a completed batch created and
// returns how many. The fingerprints stay reserved, so re-importing the same
// file yields duplicates only.
func (s *Service) RollBackImport(ctx context.Context, userID, batchID uuid.UUID) (int, error) {
	batch, err := s.store.GetImportBatch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("RollBackImport: %w", err)
	}
	if batch.UserID != userID {
		return 0, fmt.Errorf("RollBackImport: batch %s: %w", batchID, ErrForbidden)
	}
	if err := batch.RollBack(); err != nil {
		return 0, err
	}

	txs, err := s.store.QueryTransactions(ctx, TransactionQuery{AccountID: batch.AccountID, ImportBatchID: &batch.ID})
	if err != nil {
		return 0, fmt.Errorf("RollBackImport: loading transactions: %w", err)
	}
	for _, tx := range txs {
		tx.SoftDelete()
		if err := s.store.UpdateTransaction(ctx, tx); err != nil {
			return 0, fmt.Errorf("RollBackImport: deleting transaction %s: %w", tx.ID, err)
		}
	}
	if err := s.store.SaveImportBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("RollBackImport: saving batch: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("batch_id", batchID.String()).
		Int("deleted", len(txs)).
		Msg("Rolled back import")
	return len(txs), nil
}

// ExportTransactions pages through an account's live transactions, optionally
// limited to dr, and hands each page to the configured exporter.
func (s *Service) ExportTransactions(ctx context.Context, userID, accountID uuid.UUID, dr *DateRange) (int, error) {
	if s.exporter == nil {
		return 0, errors.New("ExportTransactions: no exporter configured")
	}
	account, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return 0, fmt.Errorf("ExportTransactions: %w", err)
	}

	exported := 0
	req := PageRequest{AccountID: accountID, PageSize: s.maxPageSize, DateRange: dr}
	for {
		page, err := s.pager.GetPage(ctx, req)
		if err != nil {
			return exported, fmt.Errorf("ExportTransactions: %w", err)
		}
		if len(page.Items) > 0 {
			if err := s.exporter.ExportTransactions(ctx, account, page.Items); err != nil {
				return exported, fmt.Errorf("ExportTransactions: exporting page: %w", err)
			}
			exported += len(page.Items)
		}
		if !page.HasNextPage() {
			break
		}
		req.Cursor = *page.NextCursor
	}

	log := logger.FromContext(ctx)
	log.Info().Str("account_id", accountID.String()).Int("exported", exported).Msg("Exported transactions")
	return exported, nil
}
