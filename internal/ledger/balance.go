package ledger

import (
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// DeriveBalance computes what an account's current balance should be from its
// authoritative source. Transaction-sourced accounts add every non-deleted
// posting (amounts are signed as posted) to the opening balance.
// Valuation-sourced accounts take the latest valuation, or the opening balance
// when none exists.
func DeriveBalance(account *Account, txs []*Transaction, valuations []*Valuation) (money.Money, error) {
	if account.BalanceSource() == BalanceFromValuations {
		if latest := LatestValuation(valuations); latest != nil {
			if latest.AccountID != account.ID {
				return money.Money{}, fmt.Errorf("DeriveBalance: valuation %s belongs to account %s", latest.ID, latest.AccountID)
			}
			return latest.EstimatedValue, nil
		}
		return account.OpeningBalance, nil
	}

	balance := account.OpeningBalance
	for _, tx := range txs {
		if tx.IsDeleted {
			continue
		}
		if tx.AccountID != account.ID {
			return money.Money{}, fmt.Errorf("DeriveBalance: transaction %s belongs to account %s", tx.ID, tx.AccountID)
		}
		next, err := balance.Add(tx.Amount)
		if err != nil {
			return money.Money{}, fmt.Errorf("DeriveBalance: transaction %s: %w", tx.ID, err)
		}
		balance = next
	}
	return balance, nil
}
