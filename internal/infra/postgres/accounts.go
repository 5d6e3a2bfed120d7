package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const accountColumns = `id, owner_id, name, account_type, account_sub_type, currency,
	institution, account_number, notes, opening_balance::text, opening_date,
	current_balance::text, is_active, is_shared, created_at, updated_at, is_deleted, deleted_at`

func (s *Store) InsertAccount(ctx context.Context, a *ledger.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, owner_id, name, account_type, account_sub_type, currency,
			institution, account_number, notes, opening_balance, opening_date,
			current_balance, is_active, is_shared, created_at, updated_at, is_deleted, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		a.ID, a.OwnerID, a.Name, string(a.Type), string(a.SubType), a.Currency,
		a.Institution, a.AccountNumber, a.Notes, a.OpeningBalance.Amount().String(), a.OpeningDate,
		a.CurrentBalance.Amount().String(), a.IsActive, a.IsShared, a.CreatedAt, a.UpdatedAt, a.IsDeleted, a.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertAccount: %w", mapError(err))
	}
	return nil
}

// UpdateAccount saves the mutable fields. Owner and currency are part of the
// match, so an attempt to change them finds no row.
func (s *Store) UpdateAccount(ctx context.Context, a *ledger.Account) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			name = $4, institution = $5, account_number = $6, notes = $7,
			current_balance = $8, is_active = $9, is_shared = $10,
			updated_at = $11, is_deleted = $12, deleted_at = $13
		WHERE id = $1 AND owner_id = $2 AND currency = $3`,
		a.ID, a.OwnerID, a.Currency, a.Name, a.Institution, a.AccountNumber, a.Notes,
		a.CurrentBalance.Amount().String(), a.IsActive, a.IsShared,
		a.UpdatedAt, a.IsDeleted, a.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("UpdateAccount: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateAccount: account %s with owner %s and currency %s: %w", a.ID, a.OwnerID, a.Currency, ledger.ErrNotFound)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND NOT is_deleted`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: account %s: %w", id, mapError(err))
	}
	return a, nil
}

func scanAccount(row scanner) (*ledger.Account, error) {
	var (
		a                       ledger.Account
		accountType, subType    string
		openingText, currentTxt string
	)
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Name, &accountType, &subType, &a.Currency,
		&a.Institution, &a.AccountNumber, &a.Notes, &openingText, &a.OpeningDate,
		&currentTxt, &a.IsActive, &a.IsShared, &a.CreatedAt, &a.UpdatedAt, &a.IsDeleted, &a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = ledger.AccountType(accountType)
	a.SubType = ledger.AccountSubType(subType)
	if a.OpeningBalance, err = parseMoney(openingText, a.Currency); err != nil {
		return nil, err
	}
	if a.CurrentBalance, err = parseMoney(currentTxt, a.Currency); err != nil {
		return nil, err
	}
	a.OpeningDate = utc(a.OpeningDate)
	a.CreatedAt = utc(a.CreatedAt)
	a.UpdatedAt = utc(a.UpdatedAt)
	a.DeletedAt = utcPtr(a.DeletedAt)
	return &a, nil
}
