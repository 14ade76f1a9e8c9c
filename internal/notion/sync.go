package notion

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
)

// pageSize is the Notion query page size; the API caps it at 100.
const pageSize = 100

// Syncer mirrors a profile's transactions into a Notion database.
//
// The ledger is the source of truth: pages whose transaction id is no
// longer in the ledger get archived, missing transactions get created,
// existing ones are left alone. The bolt model stores no Notion page id,
// so there is no update path; an edited page keeps its edits until the
// underlying transaction disappears.
type Syncer struct {
	store  Store
	client Service
}

func NewSyncer(store Store, client Service) *Syncer {
	return &Syncer{store: store, client: client}
}

// Result counts what one sync run did.
type Result struct {
	Created  int
	Archived int
	Skipped  int
}

// Sync pushes the profile's transactions since the given date into the
// database. dryRun logs the plan without touching Notion.
func (s *Syncer) Sync(ctx context.Context, databaseID, profileID string, since civil.Date, dryRun bool) (*Result, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("profile_id", profileID).
		Str("database_id", databaseID).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	transactions, err := s.store.ListTransactionsSince(ctx, profileID, since)
	if err != nil {
		return nil, fmt.Errorf("Sync: listing transactions: %w", err)
	}

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.ID] = true
	}

	pages, err := s.queryAllPages(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("Sync: %w", err)
	}

	log.Info().
		Int("transactions", len(transactions)).
		Int("notion_pages", len(pages)).
		Msg("Loaded both sides of the sync")

	existing := make(map[string]bool, len(pages))
	res := &Result{}

	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" && valid[txID] {
			existing[txID] = true
			continue
		}

		// A page without a transaction id, or whose transaction is gone.
		if dryRun {
			log.Info().
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := s.client.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		res.Archived++
	}

	names := &nameCache{
		store:      s.store,
		profileID:  profileID,
		accounts:   make(map[string]string),
		categories: make(map[string]string),
	}

	for _, tx := range transactions {
		if existing[tx.ID] {
			res.Skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", tx.ID).
				Msg("[DRY RUN] Would create Notion page")
			res.Created++
			continue
		}

		props := TransactionProperties(tx, names.resolve(ctx, tx))
		page, err := s.client.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.ID).
				Msg("Failed to create Notion page")
			continue
		}
		log.Debug().
			Str("transaction_id", tx.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("archived", res.Archived).
		Int("skipped", res.Skipped).
		Int("total", len(transactions)).
		Msg("Transaction sync completed")

	return res, nil
}

// queryAllPages pages through the whole database.
func (s *Syncer) queryAllPages(ctx context.Context, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: pageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}

// nameCache resolves ids to display names once per sync run. Missing
// references resolve to empty names; the page is still created.
type nameCache struct {
	store      Store
	profileID  string
	accounts   map[string]string
	categories map[string]string
}

func (c *nameCache) resolve(ctx context.Context, tx ledger.Transaction) TransactionNames {
	return TransactionNames{
		Category:    c.category(ctx, tx.CategoryID),
		Account:     c.account(ctx, tx.AccountID),
		FromAccount: c.account(ctx, tx.FromAccountID),
		ToAccount:   c.account(ctx, tx.ToAccountID),
	}
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
