package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// Client wraps the Notion SDK with the handful of calls the sync needs.
type Client struct {
	client *notionapi.Client
}

// NewClient creates a client with the provided integration token.
func NewClient(token string) *Client {
	return &Client{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreatePage creates a new page in a Notion database with the given properties.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := c.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// QueryDatabase queries a Notion database with the given filter.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), filter)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

// ArchivePage archives a Notion page; Notion has no hard delete.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	req := &notionapi.PageUpdateRequest{
		Archived: true,
	}

	if _, err := c.client.Page.Update(ctx, notionapi.PageID(pageID), req); err != nil {
		return fmt.Errorf("ArchivePage: %w", err)
	}
	return nil
}
