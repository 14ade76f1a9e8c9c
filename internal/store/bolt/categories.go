package bolt

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// FindCategory returns one category of the profile or a wrapped ErrNotFound.
func (s *Store) FindCategory(_ context.Context, profileID, categoryID string) (*ledger.Category, error) {
	var category ledger.Category
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(categoriesBucket).Get(key(profileID, categoryID))
		if data == nil {
			return fmt.Errorf("category %s: %w", categoryID, ledger.ErrNotFound)
		}
		return decode(data, &category)
	})
	if err != nil {
		return nil, fmt.Errorf("FindCategory: %w", err)
	}
	return &category, nil
}

// ListCategories returns categories of one kind in sort order, narrowed to
// frequent ones on request.
func (s *Store) ListCategories(_ context.Context, profileID string, kind ledger.CategoryKind, frequentOnly bool) ([]ledger.Category, error) {
	var categories []ledger.Category
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(categoriesBucket).Cursor()
		prefix := profilePrefix(profileID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var cat ledger.Category
			if err := decode(v, &cat); err != nil {
				return err
			}
			if cat.Kind != kind {
				continue
			}
			if frequentOnly && !cat.Frequent {
				continue
			}
			categories = append(categories, cat)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}

	sort.Slice(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// CreateCategory inserts a new category.
func (s *Store) CreateCategory(_ context.Context, category *ledger.Category) error {
	data, err := encode(category)
	if err != nil {
		return fmt.Errorf("CreateCategory: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(categoriesBucket).Put(key(category.ProfileID, category.ID), data)
	})
	if err != nil {
		return fmt.Errorf("CreateCategory: %w", err)
	}
	return nil
}
