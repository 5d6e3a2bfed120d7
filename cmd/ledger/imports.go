package main

import (
	"context"
	"flag"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/importer"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

type importCmd struct {
	account       string
	file          string
	archiveBucket string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a CSV statement into an account" }
func (*importCmd) Usage() string {
	return "ledger -user ID import -account ID -file PATH|gs://bucket/object.csv [-archive-bucket NAME]\n"
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID")
	f.StringVar(&c.file, "file", "", "local path or gs:// URI of the statement")
	f.StringVar(&c.archiveBucket, "archive-bucket", "", "GCS bucket to keep a copy of the statement in")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		accountID, err := parseID("account", c.account)
		if err != nil {
			return err
		}
		if c.file == "" {
			return fmt.Errorf("%w: -file is required", errUsage)
		}
		account, err := a.svc.GetAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}

		src := importer.RoutingSource{Local: importer.FileSource{}}
		var gcs *importer.GCSSource
		if importer.IsGCSURI(c.file) || c.archiveBucket != "" {
			client, err := storage.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("import: creating storage client: %w", err)
			}
			defer client.Close()
			gcs = importer.NewGCSSource(client)
			src.GCS = gcs
		}

		data, err := src.Fetch(ctx, c.file)
		if err != nil {
			return err
		}
		rows, err := importer.ParseCSV(data, account.ID, account.Currency)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}

		a.log.Info().
			Str("account_id", account.ID.String()).
			Str("file", c.file).
			Int("rows", len(rows)).
			Msg("Parsed statement")

		batch, err := a.svc.ImportTransactions(ctx, userID, ledger.ImportRequest{
			AccountID:  account.ID,
			FileName:   importer.FileName(c.file),
			FileFormat: importer.FileFormat(c.file),
			Rows:       rows,
		})
		if err != nil {
			return err
		}

		if gcs != nil && c.archiveBucket != "" {
			object := path.Join(account.ID.String(), time.Now().UTC().Format("20060102T150405"), batch.FileName)
			if err := gcs.Archive(ctx, c.archiveBucket, object, data); err != nil {
				a.log.Warn().Err(err).Str("bucket", c.archiveBucket).Msg("Failed to archive statement")
			} else {
				a.log.Info().Str("uri", "gs://"+c.archiveBucket+"/"+object).Msg("Archived statement")
			}
		}

		fmt.Printf("batch %s: %s, %d rows, %d imported, %d duplicates, %d errors\n",
			batch.ID, batch.Status, batch.RowCount, batch.SuccessCount, batch.DuplicateCount, batch.ErrorCount)
		if batch.ErrorDetails != "" {
			fmt.Println(batch.ErrorDetails)
		}
		return nil
	})
}

type rollbackCmd struct {
	batch string
}

func (*rollbackCmd) Name() string     { return "rollback" }
func (*rollbackCmd) Synopsis() string { return "soft-delete every transaction an import created" }
func (*rollbackCmd) Usage() string    { return "ledger -user ID rollback -batch ID\n" }
func (c *rollbackCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.batch, "batch", "", "import batch ID")
}

func (c *rollbackCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app, userID uuid.UUID) error {
		batchID, err := parseID("batch", c.batch)
		if err != nil {
			return err
		}
		n, err := a.svc.RollBackImport(ctx, userID, batchID)
		if err != nil {
			return err
		}
		fmt.Printf("rolled back %d transactions\n", n)
		return nil
	})
}
