package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

const transactionsTable = "transactions"

// Exporter streams ledger transactions into <project>.<dataset>.transactions.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	now       func() time.Time
}

// NewExporter opens a client on projectID.
func NewExporter(ctx context.Context, projectID, datasetID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	return NewExporterWithClient(client, projectID, datasetID), nil
}

// NewExporterWithClient uses an existing client.
func NewExporterWithClient(client *bigquery.Client, projectID, datasetID string) *Exporter {
	return &Exporter{client: client, projectID: projectID, datasetID: datasetID, now: time.Now}
}

func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExportTransactions implements ledger.Exporter.
func (e *Exporter) ExportTransactions(ctx context.Context, account *ledger.Account, txs []*ledger.Transaction) error {
	rows := make([]*TransactionRow, 0, len(txs))
	exportedAt := e.now().UTC()
	for _, tx := range txs {
		rows = append(rows, NewTransactionRow(account, tx, exportedAt))
	}
	return InsertTransactionsWithClient(ctx, e.client, e.projectID, e.datasetID, rows)
}

// InsertTransactionsWithClient streams rows into the transactions table. The
// transaction ID doubles as the insert ID, so a retried export is
// de-duplicated by BigQuery on a best-effort basis.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	table := client.DatasetInProject(projectID, datasetID).Table(transactionsTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, savers(rows)); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	log.Debug().Int("rows", len(rows)).Str("table", datasetID+"."+transactionsTable).Msg("Rows streamed to BigQuery")
	return nil
}

// savers keys each row on transaction ID and update time. Retries of the same
// version share an insert ID; an updated transaction gets a new one.
func savers(rows []*TransactionRow) []*bigquery.StructSaver {
	out := make([]*bigquery.StructSaver, len(rows))
	for i, r := range rows {
		out[i] = &bigquery.StructSaver{Struct: r, InsertID: insertID(r)}
	}
	return out
}

func insertID(r *TransactionRow) string {
	return r.TransactionID + "@" + r.UpdatedTS.UTC().Format(time.RFC3339Nano)
}

// QueryExportedTransactions reads back exported rows of an account within
// [start, end], newest first.
func (e *Exporter) QueryExportedTransactions(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*TransactionRow, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			account_id,
			transaction_date,
			amount,
			currency,
			transaction_type,
			description,
			category_id,
			payee_id,
			is_reconciled,
			is_split_parent,
			notes,
			external_reference,
			import_batch_id,
			linked_transfer_id,
			splits,
			tags,
			created_ts,
			updated_ts,
			exported_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE account_id = @account_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		QUALIFY ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY exported_ts DESC) = 1
		ORDER BY transaction_date DESC, transaction_id DESC
	`, e.projectID, e.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID.String()},
		{Name: "start_date", Value: civil.DateOf(start)},
		{Name: "end_date", Value: civil.DateOf(end)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryExportedTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryExportedTransactions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// Ensure Exporter implements ledger.Exporter.
var _ ledger.Exporter = (*Exporter)(nil)
