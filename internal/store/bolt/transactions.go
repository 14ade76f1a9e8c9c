package bolt

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/boltdb/bolt"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// InsertTransaction appends one transaction record.
func (s *Store) InsertTransaction(_ context.Context, txn *ledger.Transaction) error {
	data, err := encode(txn)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(transactionsBucket).Put(key(txn.ProfileID, txn.ID), data)
	})
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// ListTransactionsSince returns the profile's transactions on or after the
// given date, newest first. A zero date returns everything.
func (s *Store) ListTransactionsSince(_ context.Context, profileID string, since civil.Date) ([]ledger.Transaction, error) {
	var transactions []ledger.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(transactionsBucket).Cursor()
		prefix := profilePrefix(profileID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var t ledger.Transaction
			if err := decode(v, &t); err != nil {
				return err
			}
			if (since != civil.Date{}) && t.Date.Before(since) {
				continue
			}
			transactions = append(transactions, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsSince: %w", err)
	}

	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].Date != transactions[j].Date {
			return transactions[j].Date.Before(transactions[i].Date)
		}
		return transactions[j].CreatedAt.Before(transactions[i].CreatedAt)
	})
	return transactions, nil
}
