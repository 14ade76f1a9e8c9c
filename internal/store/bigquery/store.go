package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// Store implements the ledger storage contracts on top of BigQuery. One
// shared client serves every operation; Close releases it.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

var (
	_ ledger.AccountStore     = (*Store)(nil)
	_ ledger.CategoryStore    = (*Store)(nil)
	_ ledger.TransactionStore = (*Store)(nil)
)

// New creates a store with a shared BigQuery client.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("New: creating client: %w", err)
	}
	return &Store{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// runDML runs a mutation query and waits for the job to finish.
func (s *Store) runDML(ctx context.Context, op string, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
