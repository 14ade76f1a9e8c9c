package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED
	ProfileID string `bigquery:"profile_id"` // REQUIRED

	Name string `bigquery:"name"` // REQUIRED
	Icon string `bigquery:"icon"` // NULLABLE (empty string → "")
	Kind string `bigquery:"kind"` // REQUIRED

	Balance     int64 `bigquery:"balance"`      // REQUIRED
	CreditLimit int64 `bigquery:"credit_limit"` // REQUIRED (0 → no credit)
	Hidden      bool  `bigquery:"hidden"`       // REQUIRED
	SortOrder   int64 `bigquery:"sort_order"`   // REQUIRED
}

const accountColumns = "account_id, profile_id, name, icon, kind, balance, credit_limit, hidden, sort_order"

func (r AccountRow) account() ledger.Account {
	return ledger.Account{
		ID:          r.AccountID,
		ProfileID:   r.ProfileID,
		Name:        r.Name,
		Icon:        r.Icon,
		Kind:        ledger.AccountKind(r.Kind),
		Balance:     r.Balance,
		CreditLimit: r.CreditLimit,
		Hidden:      r.Hidden,
		SortOrder:   int(r.SortOrder),
	}
}

// FindAccount returns one account of the profile or a wrapped ErrNotFound.
func (s *Store) FindAccount(ctx context.Context, profileID, accountID string) (*ledger.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE profile_id = @profile_id AND account_id = @account_id
		LIMIT 1
	`, accountColumns, s.table("accounts"))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccount: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("FindAccount: account %s: %w", accountID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccount: iterating: %w", err)
	}

	account := row.account()
	return &account, nil
}

// ListAccounts returns the profile's visible accounts in sort order,
// narrowed to the given kinds when any are passed.
func (s *Store) ListAccounts(ctx context.Context, profileID string, kinds ...ledger.AccountKind) ([]ledger.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE profile_id = @profile_id AND hidden = FALSE
	`, accountColumns, s.table("accounts"))
	params := []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	if len(kinds) > 0 {
		query += " AND kind IN UNNEST(@kinds)"
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		params = append(params, bigquery.QueryParameter{Name: "kinds", Value: names})
	}
	query += " ORDER BY sort_order, name"

	q := s.client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: reading query: %w", err)
	}

	var accounts []ledger.Account
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: iterating: %w", err)
		}
		accounts = append(accounts, row.account())
	}

	return accounts, nil
}

// ListDebtAccounts returns visible debt accounts matching the direction,
// ordered by name.
func (s *Store) ListDebtAccounts(ctx context.Context, profileID string, direction ledger.DebtDirection) ([]ledger.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE profile_id = @profile_id AND hidden = FALSE AND kind = @kind
		ORDER BY name
	`, accountColumns, s.table("accounts"))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
		{Name: "kind", Value: string(direction.Counterparty())},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListDebtAccounts: reading query: %w", err)
	}

	var accounts []ledger.Account
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListDebtAccounts: iterating: %w", err)
		}
		accounts = append(accounts, row.account())
	}

	return accounts, nil
}

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, account *ledger.Account) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@account_id, @profile_id, @name, @icon, @kind, @balance, @credit_limit, @hidden, @sort_order)
	`, s.table("accounts"), accountColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: account.ID},
		{Name: "profile_id", Value: account.ProfileID},
		{Name: "name", Value: account.Name},
		{Name: "icon", Value: account.Icon},
		{Name: "kind", Value: string(account.Kind)},
		{Name: "balance", Value: account.Balance},
		{Name: "credit_limit", Value: account.CreditLimit},
		{Name: "hidden", Value: account.Hidden},
		{Name: "sort_order", Value: int64(account.SortOrder)},
	}

	return s.runDML(ctx, "CreateAccount", q)
}

// AdjustBalance applies a signed delta to one account's balance. The
// increment happens inside the statement, so concurrent deltas never
// clobber each other.
func (s *Store) AdjustBalance(ctx context.Context, profileID, accountID string, delta int64) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET balance = balance + @delta
		WHERE profile_id = @profile_id AND account_id = @account_id
	`, s.table("accounts")))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "delta", Value: delta},
		{Name: "profile_id", Value: profileID},
		{Name: "account_id", Value: accountID},
	}

	return s.runDML(ctx, "AdjustBalance", q)
}
