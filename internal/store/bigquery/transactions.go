package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	ProfileID     string `bigquery:"profile_id"`     // REQUIRED

	Date   civil.Date `bigquery:"date"`   // DATE, REQUIRED
	Kind   string     `bigquery:"kind"`   // REQUIRED
	Amount int64      `bigquery:"amount"` // REQUIRED, whole tenge

	CategoryID    string `bigquery:"category_id"`     // NULLABLE (empty string → "")
	AccountID     string `bigquery:"account_id"`      // NULLABLE
	FromAccountID string `bigquery:"from_account_id"` // NULLABLE
	ToAccountID   string `bigquery:"to_account_id"`   // NULLABLE

	Debt          bool   `bigquery:"debt"`           // REQUIRED
	DebtDirection string `bigquery:"debt_direction"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // TIMESTAMP, REQUIRED
}

const transactionColumns = "transaction_id, profile_id, date, kind, amount, category_id, account_id, from_account_id, to_account_id, debt, debt_direction, created_ts"

func (r TransactionRow) transaction() ledger.Transaction {
	return ledger.Transaction{
		ID:            r.TransactionID,
		ProfileID:     r.ProfileID,
		Date:          r.Date,
		Kind:          ledger.TransactionKind(r.Kind),
		Amount:        r.Amount,
		CategoryID:    r.CategoryID,
		AccountID:     r.AccountID,
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Debt:          r.Debt,
		DebtDirection: ledger.DebtDirection(r.DebtDirection),
		CreatedAt:     r.CreatedTS,
	}
}

// InsertTransaction appends one transaction row.
func (s *Store) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (
			@transaction_id, @profile_id, @date, @kind, @amount,
			@category_id, @account_id, @from_account_id, @to_account_id,
			@debt, @debt_direction, @created_ts
		)
	`, s.table("transactions"), transactionColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: tx.ID},
		{Name: "profile_id", Value: tx.ProfileID},
		{Name: "date", Value: tx.Date},
		{Name: "kind", Value: string(tx.Kind)},
		{Name: "amount", Value: tx.Amount},
		{Name: "category_id", Value: tx.CategoryID},
		{Name: "account_id", Value: tx.AccountID},
		{Name: "from_account_id", Value: tx.FromAccountID},
		{Name: "to_account_id", Value: tx.ToAccountID},
		{Name: "debt", Value: tx.Debt},
		{Name: "debt_direction", Value: string(tx.DebtDirection)},
		{Name: "created_ts", Value: tx.CreatedAt},
	}

	return s.runDML(ctx, "InsertTransaction", q)
}

// ListTransactionsSince returns the profile's transactions on or after the
// given date, newest first. A zero date returns everything.
func (s *Store) ListTransactionsSince(ctx context.Context, profileID string, since civil.Date) ([]ledger.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE profile_id = @profile_id
	`, transactionColumns, s.table("transactions"))
	params := []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	if (since != civil.Date{}) {
		query += " AND date >= @since"
		params = append(params, bigquery.QueryParameter{Name: "since", Value: since})
	}
	query += " ORDER BY date DESC, created_ts DESC"

	q := s.client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsSince: reading query: %w", err)
	}

	var transactions []ledger.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsSince: iterating: %w", err)
		}
		transactions = append(transactions, row.transaction())
	}

	return transactions, nil
}
