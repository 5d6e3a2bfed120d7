package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// SaveImportBatch inserts the batch or overwrites its mutable columns.
func (s *Store) SaveImportBatch(ctx context.Context, b *ledger.ImportBatch) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_batches (
			id, user_id, account_id, file_name, file_format, import_date,
			row_count, success_count, error_count, duplicate_count, status, error_details,
			created_at, updated_at, is_deleted, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			row_count = EXCLUDED.row_count,
			success_count = EXCLUDED.success_count,
			error_count = EXCLUDED.error_count,
			duplicate_count = EXCLUDED.duplicate_count,
			status = EXCLUDED.status,
			error_details = EXCLUDED.error_details,
			updated_at = EXCLUDED.updated_at,
			is_deleted = EXCLUDED.is_deleted,
			deleted_at = EXCLUDED.deleted_at`,
		b.ID, b.UserID, b.AccountID, b.FileName, b.FileFormat, b.ImportDate,
		b.RowCount, b.SuccessCount, b.ErrorCount, b.DuplicateCount, string(b.Status), b.ErrorDetails,
		b.CreatedAt, b.UpdatedAt, b.IsDeleted, b.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveImportBatch: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetImportBatch(ctx context.Context, id uuid.UUID) (*ledger.ImportBatch, error) {
	var (
		b      ledger.ImportBatch
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, account_id, file_name, file_format, import_date,
			row_count, success_count, error_count, duplicate_count, status, error_details,
			created_at, updated_at, is_deleted, deleted_at
		FROM import_batches
		WHERE id = $1 AND NOT is_deleted`, id,
	).Scan(
		&b.ID, &b.UserID, &b.AccountID, &b.FileName, &b.FileFormat, &b.ImportDate,
		&b.RowCount, &b.SuccessCount, &b.ErrorCount, &b.DuplicateCount, &status, &b.ErrorDetails,
		&b.CreatedAt, &b.UpdatedAt, &b.IsDeleted, &b.DeletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("GetImportBatch: import batch %s: %w", id, mapError(err))
	}
	b.Status = ledger.ImportStatus(status)
	b.ImportDate = utc(b.ImportDate)
	b.CreatedAt = utc(b.CreatedAt)
	b.UpdatedAt = utc(b.UpdatedAt)
	b.DeletedAt = utcPtr(b.DeletedAt)
	return &b, nil
}
