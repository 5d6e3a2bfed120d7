package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/logger"
)

// PageRequest selects one page of an account's transactions.
type PageRequest struct {
	AccountID  uuid.UUID
	PageSize   int
	Cursor     string
	DateRange  *DateRange
	CategoryID *uuid.UUID
}

// Page is one slice of a keyset-paginated listing.
type Page struct {
	Items      []*Transaction `json:"items"`
	PageSize   int            `json:"page_size"`
	NextCursor *string        `json:"next_cursor"`
}

func (p *Page) HasNextPage() bool { return p.NextCursor != nil }

// TransactionPager walks an account's transactions in (date DESC, id DESC)
// order. It gives no snapshot guarantee across pages.
type TransactionPager struct {
	repo TransactionRepository
}

func NewTransactionPager(repo TransactionRepository) *TransactionPager {
	return &TransactionPager{repo: repo}
}

// GetPage returns up to PageSize rows strictly after the cursor. A malformed
// cursor starts from the first page. PageSize must already be clamped by the
// caller; anything below 1 is rejected.
func (p *TransactionPager) GetPage(ctx context.Context, req PageRequest) (*Page, error) {
	if req.PageSize < 1 {
		return nil, invalid("page_size", fmt.Sprintf("must be at least 1, got %d", req.PageSize))
	}
	if req.AccountID == uuid.Nil {
		return nil, invalid("account_id", "is required")
	}

	q := TransactionQuery{
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Limit:      req.PageSize + 1,
	}
	if req.DateRange != nil {
		from, to := req.DateRange.Bounds()
		q.From, q.To = &from, &to
	}
	if req.Cursor != "" {
		c, err := ParseCursor(req.Cursor)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Debug().Err(err).Str("cursor", req.Cursor).Msg("Ignoring malformed cursor")
		} else {
			q.After = &c
		}
	}

	rows, err := p.repo.QueryTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetPage: querying transactions: %w", err)
	}

	page := &Page{PageSize: req.PageSize}
	if len(rows) > req.PageSize {
		rows = rows[:req.PageSize]
		next := CursorFor(rows[len(rows)-1]).String()
		page.NextCursor = &next
	}
	page.Items = rows
	return page, nil
}
