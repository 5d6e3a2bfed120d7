package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const transactionColumns = `id, account_id, date, amount::text, currency, description,
	transaction_type, category_id, payee_id, is_reconciled, notes, external_id,
	import_fingerprint, import_batch_id, linked_transfer_id,
	created_at, updated_at, is_deleted, deleted_at`

// InsertTransaction writes tx with its splits and tag links in one database
// transaction.
func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	err := pgx.BeginFunc(ctx, s.pool, func(dbtx pgx.Tx) error {
		_, err := dbtx.Exec(ctx, `
			INSERT INTO transactions (
				id, account_id, date, amount, currency, description, transaction_type,
				category_id, payee_id, is_reconciled, notes, external_id,
				import_fingerprint, import_batch_id, linked_transfer_id,
				created_at, updated_at, is_deleted, deleted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			tx.ID, tx.AccountID, tx.Date, tx.Amount.Amount().String(), tx.Amount.Currency(), tx.Description, string(tx.Type),
			tx.CategoryID, tx.PayeeID, tx.IsReconciled, tx.Notes, tx.ExternalID,
			nullString(tx.ImportFingerprint), tx.ImportBatchID, tx.LinkedTransferID,
			tx.CreatedAt, tx.UpdatedAt, tx.IsDeleted, tx.DeletedAt,
		)
		if err != nil {
			return err
		}
		return writeChildren(ctx, dbtx, tx)
	})
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", mapError(err))
	}
	return nil
}

// UpdateTransaction saves tx. Splits no longer present are soft-deleted; the
// account never changes.
func (s *Store) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	err := pgx.BeginFunc(ctx, s.pool, func(dbtx pgx.Tx) error {
		tag, err := dbtx.Exec(ctx, `
			UPDATE transactions SET
				date = $3, amount = $4, currency = $5, description = $6, transaction_type = $7,
				category_id = $8, payee_id = $9, is_reconciled = $10, notes = $11, external_id = $12,
				import_fingerprint = $13, import_batch_id = $14, linked_transfer_id = $15,
				updated_at = $16, is_deleted = $17, deleted_at = $18
			WHERE id = $1 AND account_id = $2`,
			tx.ID, tx.AccountID, tx.Date, tx.Amount.Amount().String(), tx.Amount.Currency(), tx.Description, string(tx.Type),
			tx.CategoryID, tx.PayeeID, tx.IsReconciled, tx.Notes, tx.ExternalID,
			nullString(tx.ImportFingerprint), tx.ImportBatchID, tx.LinkedTransferID,
			tx.UpdatedAt, tx.IsDeleted, tx.DeletedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("transaction %s on account %s: %w", tx.ID, tx.AccountID, ledger.ErrNotFound)
		}

		keep := make([]uuid.UUID, 0, len(tx.Splits))
		for _, sp := range tx.Splits {
			keep = append(keep, sp.ID)
		}
		if _, err := dbtx.Exec(ctx, `
			UPDATE transaction_splits SET is_deleted = true, deleted_at = $2, updated_at = $2
			WHERE transaction_id = $1 AND NOT is_deleted AND NOT (id = ANY($3))`,
			tx.ID, tx.UpdatedAt, keep,
		); err != nil {
			return err
		}
		if _, err := dbtx.Exec(ctx, `DELETE FROM transaction_tags WHERE transaction_id = $1`, tx.ID); err != nil {
			return err
		}
		return writeChildren(ctx, dbtx, tx)
	})
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", mapError(err))
	}
	return nil
}

// writeChildren upserts splits and inserts tag links of tx.
func writeChildren(ctx context.Context, dbtx pgx.Tx, tx *ledger.Transaction) error {
	batch := &pgx.Batch{}
	for _, sp := range tx.Splits {
		batch.Queue(`
			INSERT INTO transaction_splits (
				id, transaction_id, amount, currency, category_id, notes, percentage,
				created_at, updated_at, is_deleted, deleted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				amount = EXCLUDED.amount, currency = EXCLUDED.currency,
				category_id = EXCLUDED.category_id, notes = EXCLUDED.notes,
				percentage = EXCLUDED.percentage, updated_at = EXCLUDED.updated_at,
				is_deleted = EXCLUDED.is_deleted, deleted_at = EXCLUDED.deleted_at`,
			sp.ID, tx.ID, sp.Amount.Amount().String(), sp.Amount.Currency(), sp.CategoryID, sp.Notes, decimalText(sp.Percentage),
			sp.CreatedAt, sp.UpdatedAt, sp.IsDeleted, sp.DeletedAt,
		)
		batch.Queue(`DELETE FROM split_tags WHERE split_id = $1`, sp.ID)
		for _, tagID := range sp.TagIDs {
			batch.Queue(`INSERT INTO split_tags (split_id, tag_id) VALUES ($1, $2)`, sp.ID, tagID)
		}
	}
	for _, tagID := range tx.TagIDs {
		batch.Queue(`INSERT INTO transaction_tags (transaction_id, tag_id) VALUES ($1, $2)`, tx.ID, tagID)
	}
	if batch.Len() == 0 {
		return nil
	}
	return dbtx.SendBatch(ctx, batch).Close()
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND NOT is_deleted`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: transaction %s: %w", id, mapError(err))
	}
	if err := s.loadChildren(ctx, []*ledger.Transaction{tx}); err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// QueryTransactions pushes every filter and the keyset predicate down to SQL.
func (s *Store) QueryTransactions(ctx context.Context, q ledger.TransactionQuery) ([]*ledger.Transaction, error) {
	query, args := buildTransactionQuery(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ledger.Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("QueryTransactions: scanning: %w", err)
	}
	if err := s.loadChildren(ctx, txs); err != nil {
		return nil, fmt.Errorf("QueryTransactions: %w", err)
	}
	return txs, nil
}

func buildTransactionQuery(q ledger.TransactionQuery) (string, []any) {
	where := []string{"account_id = $1", "NOT is_deleted"}
	args := []any{q.AccountID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if q.From != nil {
		add("date >= $%d", *q.From)
	}
	if q.To != nil {
		add("date <= $%d", *q.To)
	}
	if q.CategoryID != nil {
		add("category_id = $%d", *q.CategoryID)
	}
	if q.ImportBatchID != nil {
		add("import_batch_id = $%d", *q.ImportBatchID)
	}
	if q.After != nil {
		args = append(args, q.After.Date, q.After.ID)
		where = append(where, fmt.Sprintf("(date, id) < ($%d::timestamptz, $%d::uuid)", len(args)-1, len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// FingerprintExists looks across all rows, soft-deleted ones included.
func (s *Store) FingerprintExists(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE import_fingerprint = $1)`, fingerprint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("FingerprintExists: %w", err)
	}
	return exists, nil
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var (
		tx                   ledger.Transaction
		amountText, currency string
		txType               string
		fingerprint          *string
	)
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.Date, &amountText, &currency, &tx.Description,
		&txType, &tx.CategoryID, &tx.PayeeID, &tx.IsReconciled, &tx.Notes, &tx.ExternalID,
		&fingerprint, &tx.ImportBatchID, &tx.LinkedTransferID,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.IsDeleted, &tx.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = parseMoney(amountText, currency); err != nil {
		return nil, err
	}
	tx.Type = ledger.TransactionType(txType)
	tx.ImportFingerprint = derefString(fingerprint)
	tx.Date = utc(tx.Date)
	tx.CreatedAt = utc(tx.CreatedAt)
	tx.UpdatedAt = utc(tx.UpdatedAt)
	tx.DeletedAt = utcPtr(tx.DeletedAt)
	return &tx, nil
}

// loadChildren attaches splits (soft-deleted ones included) and tag links.
func (s *Store) loadChildren(ctx context.Context, txs []*ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*ledger.Transaction, len(txs))
	ids := make([]uuid.UUID, 0, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx
		ids = append(ids, tx.ID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, transaction_id, amount::text, currency, category_id, notes, percentage::text,
			created_at, updated_at, is_deleted, deleted_at
		FROM transaction_splits
		WHERE transaction_id = ANY($1)
		ORDER BY created_at, id`, ids)
	if err != nil {
		return fmt.Errorf("loading splits: %w", err)
	}
	splits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ledger.Split, error) {
		return scanSplit(row)
	})
	if err != nil {
		return fmt.Errorf("scanning splits: %w", err)
	}
	splitByID := make(map[uuid.UUID]*ledger.Split, len(splits))
	splitIDs := make([]uuid.UUID, 0, len(splits))
	for _, sp := range splits {
		byID[sp.TransactionID].Splits = append(byID[sp.TransactionID].Splits, sp)
		splitByID[sp.ID] = sp
		splitIDs = append(splitIDs, sp.ID)
	}

	tagRows, err := s.pool.Query(ctx,
		`SELECT transaction_id, tag_id FROM transaction_tags WHERE transaction_id = ANY($1) ORDER BY tag_id`, ids)
	if err != nil {
		return fmt.Errorf("loading tags: %w", err)
	}
	if err := collectLinks(tagRows, func(owner, tag uuid.UUID) {
		byID[owner].TagIDs = append(byID[owner].TagIDs, tag)
	}); err != nil {
		return fmt.Errorf("scanning tags: %w", err)
	}

	if len(splitIDs) == 0 {
		return nil
	}
	splitTagRows, err := s.pool.Query(ctx,
		`SELECT split_id, tag_id FROM split_tags WHERE split_id = ANY($1) ORDER BY tag_id`, splitIDs)
	if err != nil {
		return fmt.Errorf("loading split tags: %w", err)
	}
	if err := collectLinks(splitTagRows, func(owner, tag uuid.UUID) {
		splitByID[owner].TagIDs = append(splitByID[owner].TagIDs, tag)
	}); err != nil {
		return fmt.Errorf("scanning split tags: %w", err)
	}
	return nil
}

func collectLinks(rows pgx.Rows, attach func(owner, tag uuid.UUID)) error {
	defer rows.Close()
	for rows.Next() {
		var owner, tag uuid.UUID
		if err := rows.Scan(&owner, &tag); err != nil {
			return err
		}
		attach(owner, tag)
	}
	return rows.Err()
}

func scanSplit(row scanner) (*ledger.Split, error) {
	var (
		sp                   ledger.Split
		amountText, currency string
		percentage           *string
	)
	err := row.Scan(
		&sp.ID, &sp.TransactionID, &amountText, &currency, &sp.CategoryID, &sp.Notes, &percentage,
		&sp.CreatedAt, &sp.UpdatedAt, &sp.IsDeleted, &sp.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if sp.Amount, err = parseMoney(amountText, currency); err != nil {
		return nil, err
	}
	if sp.Percentage, err = parseDecimalText(percentage); err != nil {
		return nil, fmt.Errorf("parsing percentage: %w", err)
	}
	sp.CreatedAt = utc(sp.CreatedAt)
	sp.UpdatedAt = utc(sp.UpdatedAt)
	sp.DeletedAt = utcPtr(sp.DeletedAt)
	return &sp, nil
}
