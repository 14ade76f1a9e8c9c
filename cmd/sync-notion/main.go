package main

import (
	"context"
	"flag"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/nkaliyev/tengebot/internal/config"
	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/notion"
	"github.com/nkaliyev/tengebot/internal/store/bigquery"
	"github.com/nkaliyev/tengebot/internal/store/bolt"
)

// store is the slice of the ledger store this command reads.
type store interface {
	notion.Store
	GetProfileByChatID(ctx context.Context, chatID int64) (*ledger.Profile, error)
	Close() error
}

func main() {
	log := logger.New("sync-notion")

	cfg := config.Load()

	chatID := flag.Int64("chat-id", 0, "Telegram chat id of the profile (required)")
	sinceStr := flag.String("since", "", "Only transactions on or after this date, YYYY-MM-DD (defaults to everything)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDatabaseID, "Notion database ID (or set NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Preview changes without touching Notion")
	flag.Parse()

	if *chatID == 0 {
		log.Fatal().Msg("Error: -chat-id is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: -notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: -notion-db-id is required")
	}

	var since civil.Date
	if *sinceStr != "" {
		parsed, err := civil.ParseDate(*sinceStr)
		if err != nil {
			log.Fatal().Err(err).Str("since", *sinceStr).Msg("Error: invalid -since, expected YYYY-MM-DD")
		}
		since = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st := openStore(ctx, cfg, log)
	defer st.Close()

	p, err := st.GetProfileByChatID(ctx, *chatID)
	if err != nil {
		log.Fatal().Err(err).Int64("chat_id", *chatID).Msg("Resolving profile failed")
	}

	syncer := notion.NewSyncer(st, notion.NewClient(*notionToken))
	res, err := syncer.Sync(ctx, *notionDBID, p.ID, since, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	log.Info().
		Int("created", res.Created).
		Int("archived", res.Archived).
		Int("skipped", res.Skipped).
		Bool("dry_run", *dryRun).
		Msg("Notion sync completed")
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) store {
	switch cfg.Backend {
	case config.BackendBigQuery:
		if cfg.ProjectID == "" {
			log.Fatal().Msg("BIGQUERY_PROJECT_ID is required for the bigquery backend")
		}
		st, err := bigquery.New(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Opening BigQuery store failed")
		}
		return st
	case config.BackendBolt:
		st, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.BoltPath).Msg("Opening bolt store failed")
		}
		return st
	}
	log.Fatal().Str("backend", string(cfg.Backend)).Msg("Unknown STORE_BACKEND")
	return nil
}
