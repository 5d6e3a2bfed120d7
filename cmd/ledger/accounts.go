package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

type createAccountCmd struct {
	name, accountType, subType, currency string
	opening, openingDate                 string
	institution, number, notes           string
}

func (*createAccountCmd) Name() string     { return "create-account" }
func (*createAccountCmd) Synopsis() string { return "create an account owned by -user" }
func (*createAccountCmd) Usage() string {
	return "ledger -user ID create-account -name NAME -type Banking -subtype Chequing -currency CAD [-opening 0] [-opening-date YYYY-MM-DD]\n"
}
func (c *createAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "account name")
	f.StringVar(&c.accountType, "type", "", "account type (Banking, Credit, Investment, Property, Loan)")
	f.StringVar(&c.subType, "subtype", "", "account sub-type")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency code")
	f.StringVar(&c.opening, "opening", "0", "opening balance")
	f.StringVar(&c.openingDate, "opening-date", "", "opening date (defaults to today)")
	f.StringVar(&c.institution, "institution", "", "institution name")
	f.StringVar(&c.number, "number", "", "account number")
	f.StringVar(&c.notes, "notes", "", "free-form notes")
}

func (c *createAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		opening, err := money.Parse(c.opening, c.currency)
		if err != nil {
			return fmt.Errorf("%w: -opening: %v", errUsage, err)
		}
		openingDate := time.Now().UTC()
		if c.openingDate != "" {
			d, err := civil.ParseDate(c.openingDate)
			if err != nil {
				return fmt.Errorf("%w: -opening-date: %v", errUsage, err)
			}
			openingDate = d.In(time.UTC)
		}

		account, err := a.svc.CreateAccount(ctx, ledger.AccountParams{
			OwnerID:        userID,
			Name:           c.name,
			Type:           ledger.AccountType(c.accountType),
			SubType:        ledger.AccountSubType(c.subType),
			Currency:       c.currency,
			OpeningBalance: opening,
			OpeningDate:    openingDate,
			Institution:    c.institution,
			AccountNumber:  c.number,
			Notes:          c.notes,
		})
		if err != nil {
			return err
		}
		fmt.Println(account.ID)
		return nil
	})
}

type valuationCmd struct {
	account, value, date, source, notes string
	latest                              bool
}

func (*valuationCmd) Name() string     { return "valuation" }
func (*valuationCmd) Synopsis() string { return "record or show the valuation of a property or investment account" }
func (*valuationCmd) Usage() string {
	return "ledger -user ID valuation -account ID -value 650000 -date YYYY-MM-DD -source appraisal\n" +
		"ledger -user ID valuation -account ID -latest\n"
}
func (c *valuationCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID")
	f.StringVar(&c.value, "value", "", "estimated value in the account currency")
	f.StringVar(&c.date, "date", "", "effective date (defaults to today)")
	f.StringVar(&c.source, "source", "manual", "where the estimate comes from")
	f.StringVar(&c.notes, "notes", "", "free-form notes")
	f.BoolVar(&c.latest, "latest", false, "print the latest valuation instead of recording one")
}

func (c *valuationCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		accountID, err := parseID("account", c.account)
		if err != nil {
			return err
		}
		if c.latest {
			v, err := a.svc.LatestValuation(ctx, userID, accountID)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", v.EffectiveDate, v.EstimatedValue, v.Source, v.ID)
			return nil
		}

		account, err := a.svc.GetAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		value, err := money.Parse(c.value, account.Currency)
		if err != nil {
			return fmt.Errorf("%w: -value: %v", errUsage, err)
		}
		effective := civil.DateOf(time.Now().UTC())
		if c.date != "" {
			if effective, err = civil.ParseDate(c.date); err != nil {
				return fmt.Errorf("%w: -date: %v", errUsage, err)
			}
		}
		v, err := a.svc.RecordValuation(ctx, userID, accountID, value, effective, c.source, c.notes)
		if err != nil {
			return err
		}
		fmt.Println(v.ID)
		return nil
	})
}

type recomputeCmd struct {
	account string
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "rederive and save an account's cached balance" }
func (*recomputeCmd) Usage() string    { return "ledger -user ID recompute -account ID\n" }
func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID")
}

func (c *recomputeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		accountID, err := parseID("account", c.account)
		if err != nil {
			return err
		}
		balance, err := a.svc.RecomputeBalance(ctx, userID, accountID)
		if err != nil {
			return err
		}
		fmt.Println(balance)
		return nil
	})
}
