package profile

import (
	"context"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// Store is the storage surface the profile service needs: profile lookup
// and creation, seeding, and the destructive per-profile maintenance ops.
// Both internal/store implementations satisfy it.
type Store interface {
	// GetProfileByChatID returns the profile keyed by the Telegram chat id,
	// or a wrapped ledger.ErrNotFound.
	GetProfileByChatID(ctx context.Context, chatID int64) (*ledger.Profile, error)

	// CreateProfile inserts a new profile and its chat-id mapping.
	CreateProfile(ctx context.Context, profile *ledger.Profile) error

	// DeleteProfile removes the profile record and its chat-id mapping.
	DeleteProfile(ctx context.Context, profileID string) error

	// CreateAccount and CreateCategory are used for seeding defaults.
	CreateAccount(ctx context.Context, account *ledger.Account) error
	CreateCategory(ctx context.Context, category *ledger.Category) error

	// DeleteTransactions, DeleteAccounts and DeleteCategories wipe the
	// profile's records of one entity.
	DeleteTransactions(ctx context.Context, profileID string) error
	DeleteAccounts(ctx context.Context, profileID string) error
	DeleteCategories(ctx context.Context, profileID string) error

	// ZeroBalances resets every account balance to zero, keeping the
	// accounts themselves.
	ZeroBalances(ctx context.Context, profileID string) error
}
