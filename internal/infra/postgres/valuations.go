package postgres

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

func (s *Store) InsertValuation(ctx context.Context, v *ledger.Valuation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO valuations (
			id, account_id, estimated_value, currency, effective_date, recorded_at,
			source, notes, created_at, updated_at, is_deleted, deleted_at
		) VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.AccountID, v.EstimatedValue.Amount().String(), v.EstimatedValue.Currency(), v.EffectiveDate.String(), v.RecordedAt,
		v.Source, v.Notes, v.CreatedAt, v.UpdatedAt, v.IsDeleted, v.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertValuation: %w", mapError(err))
	}
	return nil
}

// ListValuations returns every valuation of the account, deleted ones
// included; ledger.LatestValuation skips those.
func (s *Store) ListValuations(ctx context.Context, accountID uuid.UUID) ([]*ledger.Valuation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, estimated_value::text, currency, effective_date::text, recorded_at,
			source, notes, created_at, updated_at, is_deleted, deleted_at
		FROM valuations
		WHERE account_id = $1
		ORDER BY effective_date DESC, recorded_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("ListValuations: %w", err)
	}
	vals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ledger.Valuation, error) {
		return scanValuation(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListValuations: scanning: %w", err)
	}
	return vals, nil
}

func scanValuation(row scanner) (*ledger.Valuation, error) {
	var (
		v                          ledger.Valuation
		valueText, currency, dateS string
	)
	err := row.Scan(
		&v.ID, &v.AccountID, &valueText, &currency, &dateS, &v.RecordedAt,
		&v.Source, &v.Notes, &v.CreatedAt, &v.UpdatedAt, &v.IsDeleted, &v.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if v.EstimatedValue, err = parseMoney(valueText, currency); err != nil {
		return nil, err
	}
	if v.EffectiveDate, err = civil.ParseDate(dateS); err != nil {
		return nil, fmt.Errorf("parsing effective date %q: %w", dateS, err)
	}
	v.RecordedAt = utc(v.RecordedAt)
	v.CreatedAt = utc(v.CreatedAt)
	v.UpdatedAt = utc(v.UpdatedAt)
	v.DeletedAt = utcPtr(v.DeletedAt)
	return &v, nil
}
