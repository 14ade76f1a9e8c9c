package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

type ProfileRow struct {
	ProfileID string `bigquery:"profile_id"` // REQUIRED
	ChatID    int64  `bigquery:"chat_id"`    // REQUIRED

	DisplayName string `bigquery:"display_name"` // NULLABLE (empty string → "")
	Currency    string `bigquery:"currency"`     // REQUIRED
	Timezone    string `bigquery:"timezone"`     // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // TIMESTAMP, REQUIRED
}

const profileColumns = "profile_id, chat_id, display_name, currency, timezone, created_ts"

func (r ProfileRow) profile() ledger.Profile {
	return ledger.Profile{
		ID:          r.ProfileID,
		ChatID:      r.ChatID,
		DisplayName: r.DisplayName,
		Currency:    r.Currency,
		Timezone:    r.Timezone,
		CreatedAt:   r.CreatedTS,
	}
}

// GetProfileByChatID returns the profile owning a chat or a wrapped
// ErrNotFound.
func (s *Store) GetProfileByChatID(ctx context.Context, chatID int64) (*ledger.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE chat_id = @chat_id
		LIMIT 1
	`, profileColumns, s.table("profiles"))

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "chat_id", Value: chatID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetProfileByChatID: reading query: %w", err)
	}

	var row ProfileRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetProfileByChatID: chat %d: %w", chatID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetProfileByChatID: iterating: %w", err)
	}

	profile := row.profile()
	return &profile, nil
}

// CreateProfile inserts a new profile row.
func (s *Store) CreateProfile(ctx context.Context, profile *ledger.Profile) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@profile_id, @chat_id, @display_name, @currency, @timezone, @created_ts)
	`, s.table("profiles"), profileColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "profile_id", Value: profile.ID},
		{Name: "chat_id", Value: profile.ChatID},
		{Name: "display_name", Value: profile.DisplayName},
		{Name: "currency", Value: profile.Currency},
		{Name: "timezone", Value: profile.Timezone},
		{Name: "created_ts", Value: profile.CreatedAt},
	}

	return s.runDML(ctx, "CreateProfile", q)
}
