package ledger

import (
	"context"

	"cloud.google.com/go/civil"
)

// AccountStore is the account-side storage contract the engine and
// directory depend on. Implementations live in internal/store.
type AccountStore interface {
	// FindAccount returns one account or a wrapped ErrNotFound.
	FindAccount(ctx context.Context, profileID, accountID string) (*Account, error)

	// ListAccounts returns the profile's visible accounts ordered by sort
	// order. With kinds given, only accounts of those kinds are returned.
	ListAccounts(ctx context.Context, profileID string, kinds ...AccountKind) ([]Account, error)

	// ListDebtAccounts returns visible accounts of the kind matching the
	// debt direction, ordered by name.
	ListDebtAccounts(ctx context.Context, profileID string, direction DebtDirection) ([]Account, error)

	// CreateAccount inserts a new account.
	CreateAccount(ctx context.Context, account *Account) error

	// AdjustBalance applies a signed delta to one account's balance. The
	// read-modify-write must be atomic per account.
	AdjustBalance(ctx context.Context, profileID, accountID string, delta int64) error
}

// CategoryStore is the category-side storage contract.
type CategoryStore interface {
	// FindCategory returns one category or a wrapped ErrNotFound.
	FindCategory(ctx context.Context, profileID, categoryID string) (*Category, error)

	// ListCategories returns the profile's categories of one kind ordered
	// by sort order, optionally narrowed to frequent ones.
	ListCategories(ctx context.Context, profileID string, kind CategoryKind, frequentOnly bool) ([]Category, error)

	// CreateCategory inserts a new category.
	CreateCategory(ctx context.Context, category *Category) error
}

// TransactionStore is the transaction-side storage contract.
type TransactionStore interface {
	// InsertTransaction appends one transaction record.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	// ListTransactionsSince returns transactions on or after the given
	// date, newest first. A zero date returns everything.
	ListTransactionsSince(ctx context.Context, profileID string, since civil.Date) ([]Transaction, error)
}
