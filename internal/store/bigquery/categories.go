package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

type CategoryRow struct {
	CategoryID string `bigquery:"category_id"` // REQUIRED
	ProfileID  string `bigquery:"profile_id"`  // REQUIRED

	Name string `bigquery:"name"` // REQUIRED
	Icon string `bigquery:"icon"` // NULLABLE (empty string → "")
	Kind string `bigquery:"kind"` // REQUIRED

	Frequent  bool  `bigquery:"frequent"`   // REQUIRED
	SortOrder int64 `bigquery:"sort_order"` // REQUIRED
}

const categoryColumns = "category_id, profile_id, name, icon, kind, frequent, sort_order"

func (r CategoryRow) category() ledger.Category {
	return ledger.Category{
		ID:        r.CategoryID,
		ProfileID: r.ProfileID,
		Name:      r.Name,
		Icon:      r.Icon,
		Kind:      ledger.CategoryKind(r.Kind),
		Frequent:  r.Frequent,
		SortOrder: int(r.SortOrder),
	}
}

// FindCategory returns one category of the profile or a wrapped ErrNotFound.
func (s *Store) FindCategory(ctx context.Context, profileID, categoryID string) (*ledger.Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE profile_id = @profile_id AND category_id = @category_id
		LIMIT 1
	`, categoryColumns, s.table("categories"))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
		{Name: "category_id", Value: categoryID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindCategory: reading query: %w", err)
	}

	var row CategoryRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("FindCategory: category %s: %w", categoryID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FindCategory: iterating: %w", err)
	}

	category := row.category()
	return &category, nil
}

// ListCategories returns categories of one kind in sort order, narrowed to
// frequent ones on request.
func (s *Store) ListCategories(ctx context.Context, profileID string, kind ledger.CategoryKind, frequentOnly bool) ([]ledger.Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE profile_id = @profile_id AND kind = @kind
	`, categoryColumns, s.table("categories"))
	if frequentOnly {
		query += " AND frequent = TRUE"
	}
	query += " ORDER BY sort_order, name"

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profileID},
		{Name: "kind", Value: string(kind)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: reading query: %w", err)
	}

	var categories []ledger.Category
	for {
		var row CategoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iterating: %w", err)
		}
		categories = append(categories, row.category())
	}

	return categories, nil
}

// CreateCategory inserts a new category row.
func (s *Store) CreateCategory(ctx context.Context, category *ledger.Category) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@category_id, @profile_id, @name, @icon, @kind, @frequent, @sort_order)
	`, s.table("categories"), categoryColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_id", Value: category.ID},
		{Name: "profile_id", Value: category.ProfileID},
		{Name: "name", Value: category.Name},
		{Name: "icon", Value: category.Icon},
		{Name: "kind", Value: string(category.Kind)},
		{Name: "frequent", Value: category.Frequent},
		{Name: "sort_order", Value: int64(category.SortOrder)},
	}

	return s.runDML(ctx, "CreateCategory", q)
}
