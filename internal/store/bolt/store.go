package bolt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

var (
	profilesBucket     = []byte("profiles")
	chatsBucket        = []byte("chats")
	accountsBucket     = []byte("accounts")
	categoriesBucket   = []byte("categories")
	transactionsBucket = []byte("transactions")
)

// Store implements the ledger storage contracts on a local Bolt file, for
// running without a BigQuery project. Rows are gob-encoded; keys are
// "<profile_id>/<row_id>" so one prefix scan covers a profile.
type Store struct {
	db *bolt.DB
}

var (
	_ ledger.AccountStore     = (*Store)(nil)
	_ ledger.CategoryStore    = (*Store)(nil)
	_ ledger.TransactionStore = (*Store)(nil)
)

// Open opens or creates the database file and its buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("Open: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{profilesBucket, chatsBucket, accountsBucket, categoriesBucket, transactionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(profileID, id string) []byte {
	return []byte(profileID + "/" + id)
}

func profilePrefix(profileID string) []byte {
	return []byte(profileID + "/")
}

func chatKey(chatID int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(chatID))
	return k[:]
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// deleteByPrefix removes every key of one profile from a bucket.
func (s *Store) deleteByPrefix(op string, bucket []byte, profileID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		prefix := profilePrefix(profileID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
