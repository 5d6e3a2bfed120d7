package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

type transactionsCmd struct {
	account, cursor, from, to, category string
	pageSize                            int
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list one page of an account's transactions, newest first" }
func (*transactionsCmd) Usage() string {
	return "ledger -user ID transactions -account ID [-page-size N] [-cursor C] [-from YYYY-MM-DD -to YYYY-MM-DD] [-category ID]\n"
}
func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID")
	f.IntVar(&c.pageSize, "page-size", 0, "rows per page (0 uses the default)")
	f.StringVar(&c.cursor, "cursor", "", "cursor printed by the previous page")
	f.StringVar(&c.from, "from", "", "first day of the range")
	f.StringVar(&c.to, "to", "", "last day of the range")
	f.StringVar(&c.category, "category", "", "category ID")
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		accountID, err := parseID("account", c.account)
		if err != nil {
			return err
		}
		categoryID, err := parseOptionalID("category", c.category)
		if err != nil {
			return err
		}
		dr, err := parseDateRange(c.from, c.to)
		if err != nil {
			return err
		}

		page, err := a.svc.ListTransactions(ctx, userID, ledger.PageRequest{
			AccountID:  accountID,
			PageSize:   c.pageSize,
			Cursor:     c.cursor,
			DateRange:  dr,
			CategoryID: categoryID,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, tx := range page.Items {
			split := ""
			if tx.IsSplit() {
				split = "split"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.Date.Format("2006-01-02"), tx.Amount, tx.Type, tx.Description, split, tx.ID)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if page.HasNextPage() {
			fmt.Printf("next cursor: %s\n", *page.NextCursor)
		}
		return nil
	})
}

type exportCmd struct {
	account, from, to string
	verify            bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "stream an account's transactions into BigQuery" }
func (*exportCmd) Usage() string {
	return "ledger -user ID export -account ID [-from YYYY-MM-DD -to YYYY-MM-DD] [-verify]\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID")
	f.StringVar(&c.from, "from", "", "first day of the range")
	f.StringVar(&c.to, "to", "", "last day of the range")
	f.BoolVar(&c.verify, "verify", false, "read the exported range back from BigQuery (needs -from and -to)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		if a.exporter == nil {
			return errors.New("export: BQ_PROJECT is not set")
		}
		accountID, err := parseID("account", c.account)
		if err != nil {
			return err
		}
		dr, err := parseDateRange(c.from, c.to)
		if err != nil {
			return err
		}

		n, err := a.svc.ExportTransactions(ctx, userID, accountID, dr)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d transactions\n", n)

		if c.verify && dr != nil {
			from, to := dr.Bounds()
			rows, err := a.exporter.QueryExportedTransactions(ctx, accountID, from, to)
			if err != nil {
				return err
			}
			fmt.Printf("BigQuery holds %d transactions for %s\n", len(rows), dr)
		}
		return nil
	})
}

// parseDateRange returns nil when neither bound is set. A single bound is a
// usage error.
func parseDateRange(from, to string) (*ledger.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: -from and -to go together", errUsage)
	}
	start, err := civil.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("%w: -from: %v", errUsage, err)
	}
	end, err := civil.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("%w: -to: %v", errUsage, err)
	}
	dr, err := ledger.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	return &dr, nil
}
