package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// The wipe operations below power profile reset and deletion. Each one is
// scoped to a single profile; ordering is the caller's responsibility.

// DeleteTransactions removes every transaction of one profile.
func (s *Store) DeleteTransactions(ctx context.Context, profileID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s WHERE profile_id = @profile_id
	`, s.table("transactions")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	return s.runDML(ctx, "DeleteTransactions", q)
}

// DeleteAccounts removes every account of one profile, counterparties
// included.
func (s *Store) DeleteAccounts(ctx context.Context, profileID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s WHERE profile_id = @profile_id
	`, s.table("accounts")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	return s.runDML(ctx, "DeleteAccounts", q)
}

// DeleteCategories removes every category of one profile.
func (s *Store) DeleteCategories(ctx context.Context, profileID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s WHERE profile_id = @profile_id
	`, s.table("categories")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	return s.runDML(ctx, "DeleteCategories", q)
}

// DeleteProfile removes the profile row itself.
func (s *Store) DeleteProfile(ctx context.Context, profileID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s WHERE profile_id = @profile_id
	`, s.table("profiles")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	return s.runDML(ctx, "DeleteProfile", q)
}

// ZeroBalances resets every account balance of one profile to zero while
// keeping the accounts themselves.
func (s *Store) ZeroBalances(ctx context.Context, profileID string) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s SET balance = 0 WHERE profile_id = @profile_id
	`, s.table("accounts")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
	}
	return s.runDML(ctx, "ZeroBalances", q)
}
