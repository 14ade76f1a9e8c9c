package ledger

import (
	"context"
	"fmt"
)

// Directory serves the read-side listings the entry wizard builds its
// choice lists from. Hidden accounts never appear; ordering follows the
// explicit sort keys, never creation time.
type Directory struct {
	accounts   AccountStore
	categories CategoryStore
}

// NewDirectory creates a directory over the given stores.
func NewDirectory(accounts AccountStore, categories CategoryStore) *Directory {
	return &Directory{
		accounts:   accounts,
		categories: categories,
	}
}

// MoneyAccounts lists the accounts money can move through: assets and
// savings, visible only, in sort order.
func (d *Directory) MoneyAccounts(ctx context.Context, profileID string) ([]Account, error) {
	accounts, err := d.accounts.ListAccounts(ctx, profileID, AccountAsset, AccountSavings)
	if err != nil {
		return nil, fmt.Errorf("MoneyAccounts: %w", err)
	}
	return accounts, nil
}

// Categories lists one kind of category, full or frequent-only.
func (d *Directory) Categories(ctx context.Context, profileID string, kind CategoryKind, frequentOnly bool) ([]Category, error) {
	categories, err := d.categories.ListCategories(ctx, profileID, kind, frequentOnly)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	return categories, nil
}

// Counterparties lists debt accounts matching a direction: receivables for
// money lent, liabilities for money borrowed.
func (d *Directory) Counterparties(ctx context.Context, profileID string, direction DebtDirection) ([]Account, error) {
	accounts, err := d.accounts.ListDebtAccounts(ctx, profileID, direction)
	if err != nil {
		return nil, fmt.Errorf("Counterparties: %w", err)
	}
	return accounts, nil
}

// FindAccount fetches one account for label refresh and finalize summaries.
func (d *Directory) FindAccount(ctx context.Context, profileID, accountID string) (*Account, error) {
	account, err := d.accounts.FindAccount(ctx, profileID, accountID)
	if err != nil {
		return nil, fmt.Errorf("FindAccount: %w", err)
	}
	return account, nil
}

// FindCategory fetches one category.
func (d *Directory) FindCategory(ctx context.Context, profileID, categoryID string) (*Category, error) {
	category, err := d.categories.FindCategory(ctx, profileID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("FindCategory: %w", err)
	}
	return category, nil
}
