package notion

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// Service defines the Notion API surface the sync drives. The interface
// enables mocking in tests.
type Service interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePage(ctx context.Context, pageID string) error
}

var _ Service = (*Client)(nil)

// Store is the slice of the ledger store the sync reads.
type Store interface {
	ListTransactionsSince(ctx context.Context, profileID string, since civil.Date) ([]ledger.Transaction, error)
	FindAccount(ctx context.Context, profileID, accountID string) (*ledger.Account, error)
	FindCategory(ctx context.Context, profileID, categoryID string) (*ledger.Category, error)
}
