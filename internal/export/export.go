package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
)

// Store is the slice of the transaction store the exporter reads.
type Store interface {
	ListTransactionsSince(ctx context.Context, profileID string, since civil.Date) ([]ledger.Transaction, error)
	FindAccount(ctx context.Context, profileID, accountID string) (*ledger.Account, error)
	FindCategory(ctx context.Context, profileID, categoryID string) (*ledger.Category, error)
}

// Record is one exported transaction line. Names are resolved best
// effort; a reference whose account or category is gone keeps an empty
// name rather than failing the export.
type Record struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Kind          string `json:"kind"`
	Amount        int64  `json:"amount"`
	Category      string `json:"category,omitempty"`
	Account       string `json:"account,omitempty"`
	FromAccount   string `json:"from_account,omitempty"`
	ToAccount     string `json:"to_account,omitempty"`
	Debt          bool   `json:"debt,omitempty"`
	DebtDirection string `json:"debt_direction,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Exporter dumps a profile's ledger as JSONL.
type Exporter struct {
	store Store
}

func New(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the profile's transactions since the given date to w,
// one JSON object per line, newest first. A zero since exports
// everything. It returns the number of lines written.
func (e *Exporter) Export(ctx context.Context, profileID string, since civil.Date, w io.Writer) (int, error) {
	txns, err := e.store.ListTransactionsSince(ctx, profileID, since)
	if err != nil {
		return 0, fmt.Errorf("Export: listing transactions: %w", err)
	}

	names := &nameCache{
		store:      e.store,
		profileID:  profileID,
		accounts:   make(map[string]string),
		categories: make(map[string]string),
	}

	enc := json.NewEncoder(w)
	for _, tx := range txns {
		if err := enc.Encode(record(ctx, names, tx)); err != nil {
			return 0, fmt.Errorf("Export: encoding transaction %s: %w", tx.ID, err)
		}
	}
	return len(txns), nil
}

// ExportToFile writes the JSONL dump to path, truncating any previous
// file.
func (e *Exporter) ExportToFile(ctx context.Context, profileID string, since civil.Date, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("ExportToFile: %w", err)
	}

	n, err := e.Export(ctx, profileID, since, f)
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("ExportToFile: closing %s: %w", path, err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("profile_id", profileID).
		Str("path", path).
		Int("transactions", n).
		Msg("Ledger exported")

	return n, nil
}

func record(ctx context.Context, names *nameCache, tx ledger.Transaction) Record {
	rec := Record{
		ID:            tx.ID,
		Date:          tx.Date.String(),
		Kind:          string(tx.Kind),
		Amount:        tx.Amount,
		Category:      names.category(ctx, tx.CategoryID),
		Account:       names.account(ctx, tx.AccountID),
		FromAccount:   names.account(ctx, tx.FromAccountID),
		ToAccount:     names.account(ctx, tx.ToAccountID),
		Debt:          tx.Debt,
		DebtDirection: string(tx.DebtDirection),
	}
	if !tx.CreatedAt.IsZero() {
		rec.CreatedAt = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return rec
}

// nameCache resolves ids to display names once per export run.
type nameCache struct {
	store      Store
	profileID  string
	accounts   map[string]string
	categories map[string]string
}

func (c *nameCache) account(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := c.accounts[id]; ok {
		return name
	}
	name := ""
	if a, err := c.store.FindAccount(ctx, c.profileID, id); err == nil {
		name = a.Name
	}
	c.accounts[id] = name
	return name
}

func (c *nameCache) category(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := c.categories[id]; ok {
		return name
	}
	name := ""
	if cat, err := c.store.FindCategory(ctx, c.profileID, id); err == nil {
		name = cat.Name
	}
	c.categories[id] = name
	return name
}
