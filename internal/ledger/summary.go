package ledger

import (
	"context"
	"fmt"
)

// BalanceSummary is the grouped view behind /balance. Accounts with a
// positive credit limit are pulled out of the plain-money bucket into
// Credit; the split affects presentation only, their balances still count
// toward Available.
type BalanceSummary struct {
	Money       []Account
	Credit      []Account
	Savings     []Account
	Receivables []Account
	Liabilities []Account

	Available int64
	Saved     int64
	OwedToMe  int64
	IOwe      int64
}

// Empty reports whether the profile has no visible accounts at all.
func (s *BalanceSummary) Empty() bool {
	return len(s.Money)+len(s.Credit)+len(s.Savings)+len(s.Receivables)+len(s.Liabilities) == 0
}

// NetWorth is available money plus savings plus what others owe, minus
// what the user owes.
func (s *BalanceSummary) NetWorth() int64 {
	return s.Available + s.Saved + s.OwedToMe - s.IOwe
}

// Summary groups every visible account of the profile and totals each
// bucket.
func (d *Directory) Summary(ctx context.Context, profileID string) (*BalanceSummary, error) {
	accounts, err := d.accounts.ListAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	s := &BalanceSummary{}
	for _, a := range accounts {
		switch a.Kind {
		case AccountAsset:
			s.Available += a.Balance
			if a.Credit() {
				s.Credit = append(s.Credit, a)
			} else {
				s.Money = append(s.Money, a)
			}
		case AccountSavings:
			s.Saved += a.Balance
			s.Savings = append(s.Savings, a)
		case AccountReceivable:
			s.OwedToMe += a.Balance
			s.Receivables = append(s.Receivables, a)
		case AccountLiability:
			if a.Balance < 0 {
				s.IOwe += -a.Balance
			} else {
				s.IOwe += a.Balance
			}
			s.Liabilities = append(s.Liabilities, a)
		}
	}
	return s, nil
}
