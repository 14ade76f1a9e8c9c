package bolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// GetProfileByChatID returns the profile owning a chat or a wrapped
// ErrNotFound. The chats bucket maps chat ids to profile ids.
func (s *Store) GetProfileByChatID(_ context.Context, chatID int64) (*ledger.Profile, error) {
	var profile ledger.Profile
	err := s.db.View(func(tx *bolt.Tx) error {
		profileID := tx.Bucket(chatsBucket).Get(chatKey(chatID))
		if profileID == nil {
			return fmt.Errorf("chat %d: %w", chatID, ledger.ErrNotFound)
		}
		data := tx.Bucket(profilesBucket).Get(profileID)
		if data == nil {
			return fmt.Errorf("profile %s: %w", profileID, ledger.ErrNotFound)
		}
		return decode(data, &profile)
	})
	if err != nil {
		return nil, fmt.Errorf("GetProfileByChatID: %w", err)
	}
	return &profile, nil
}

// CreateProfile inserts a new profile and its chat index entry.
func (s *Store) CreateProfile(_ context.Context, profile *ledger.Profile) error {
	data, err := encode(profile)
	if err != nil {
		return fmt.Errorf("CreateProfile: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(profilesBucket).Put([]byte(profile.ID), data); err != nil {
			return err
		}
		return tx.Bucket(chatsBucket).Put(chatKey(profile.ChatID), []byte(profile.ID))
	})
	if err != nil {
		return fmt.Errorf("CreateProfile: %w", err)
	}
	return nil
}

// DeleteProfile removes the profile row and its chat index entry.
func (s *Store) DeleteProfile(_ context.Context, profileID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(profilesBucket).Get([]byte(profileID))
		if data != nil {
			var profile ledger.Profile
			if err := decode(data, &profile); err != nil {
				return err
			}
			if err := tx.Bucket(chatsBucket).Delete(chatKey(profile.ChatID)); err != nil {
				return err
			}
		}
		return tx.Bucket(profilesBucket).Delete([]byte(profileID))
	})
	if err != nil {
		return fmt.Errorf("DeleteProfile: %w", err)
	}
	return nil
}

// DeleteTransactions removes every transaction of one profile.
func (s *Store) DeleteTransactions(_ context.Context, profileID string) error {
	return s.deleteByPrefix("DeleteTransactions", transactionsBucket, profileID)
}

// DeleteAccounts removes every account of one profile, counterparties
// included.
func (s *Store) DeleteAccounts(_ context.Context, profileID string) error {
	return s.deleteByPrefix("DeleteAccounts", accountsBucket, profileID)
}

// DeleteCategories removes every category of one profile.
func (s *Store) DeleteCategories(_ context.Context, profileID string) error {
	return s.deleteByPrefix("DeleteCategories", categoriesBucket, profileID)
}

// ZeroBalances resets every account balance of one profile to zero while
// keeping the accounts themselves.
func (s *Store) ZeroBalances(_ context.Context, profileID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		prefix := profilePrefix(profileID)

		// Writing invalidates the cursor, so collect first and put after.
		updates := make(map[string][]byte)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var account ledger.Account
			if err := decode(v, &account); err != nil {
				return err
			}
			if account.Balance == 0 {
				continue
			}
			account.Balance = 0
			data, err := encode(&account)
			if err != nil {
				return err
			}
			updates[string(k)] = data
		}
		for k, data := range updates {
			if err := b.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ZeroBalances: %w", err)
	}
	return nil
}
