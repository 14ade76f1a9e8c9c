package bolt

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// FindAccount returns one account of the profile or a wrapped ErrNotFound.
func (s *Store) FindAccount(_ context.Context, profileID, accountID string) (*ledger.Account, error) {
	var account ledger.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(accountsBucket).Get(key(profileID, accountID))
		if data == nil {
			return fmt.Errorf("account %s: %w", accountID, ledger.ErrNotFound)
		}
		return decode(data, &account)
	})
	if err != nil {
		return nil, fmt.Errorf("FindAccount: %w", err)
	}
	return &account, nil
}

// ListAccounts returns the profile's visible accounts in sort order,
// narrowed to the given kinds when any are passed.
func (s *Store) ListAccounts(_ context.Context, profileID string, kinds ...ledger.AccountKind) ([]ledger.Account, error) {
	wanted := make(map[ledger.AccountKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var accounts []ledger.Account
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(accountsBucket).Cursor()
		prefix := profilePrefix(profileID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var a ledger.Account
			if err := decode(v, &a); err != nil {
				return err
			}
			if a.Hidden {
				continue
			}
			if len(wanted) > 0 && !wanted[a.Kind] {
				continue
			}
			accounts = append(accounts, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].SortOrder != accounts[j].SortOrder {
			return accounts[i].SortOrder < accounts[j].SortOrder
		}
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

// ListDebtAccounts returns visible debt accounts matching the direction,
// ordered by name.
func (s *Store) ListDebtAccounts(ctx context.Context, profileID string, direction ledger.DebtDirection) ([]ledger.Account, error) {
	accounts, err := s.ListAccounts(ctx, profileID, direction.Counterparty())
	if err != nil {
		return nil, fmt.Errorf("ListDebtAccounts: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(_ context.Context, account *ledger.Account) error {
	data, err := encode(account)
	if err != nil {
		return fmt.Errorf("CreateAccount: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).Put(key(account.ProfileID, account.ID), data)
	})
	if err != nil {
		return fmt.Errorf("CreateAccount: %w", err)
	}
	return nil
}

// AdjustBalance applies a signed delta to one account's balance. The
// read-modify-write runs inside a single update transaction.
func (s *Store) AdjustBalance(_ context.Context, profileID, accountID string, delta int64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		k := key(profileID, accountID)
		data := b.Get(k)
		if data == nil {
			return fmt.Errorf("account %s: %w", accountID, ledger.ErrNotFound)
		}
		var account ledger.Account
		if err := decode(data, &account); err != nil {
			return err
		}
		account.Balance += delta
		updated, err := encode(&account)
		if err != nil {
			return err
		}
		return b.Put(k, updated)
	})
	if err != nil {
		return fmt.Errorf("AdjustBalance: %w", err)
	}
	return nil
}
