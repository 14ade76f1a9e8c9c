package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/nkaliyev/tengebot/internal/config"
	"github.com/nkaliyev/tengebot/internal/export"
	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/store/bigquery"
	"github.com/nkaliyev/tengebot/internal/store/bolt"
)

// store is the slice of the ledger store the exporter reads.
type store interface {
	export.Store
	GetProfileByChatID(ctx context.Context, chatID int64) (*ledger.Profile, error)
	Close() error
}

func main() {
	log := logger.New("export")

	cfg := config.Load()

	chatID := flag.Int64("chat-id", 0, "Telegram chat id of the profile (required)")
	sinceStr := flag.String("since", "", "Only transactions on or after this date, YYYY-MM-DD (defaults to everything)")
	out := flag.String("out", "", "Output JSONL file path (required)")
	gcsURI := flag.String("gcs", "", "Optional gs://bucket/object destination to upload the file to")
	flag.Parse()

	if *chatID == 0 {
		log.Fatal().Msg("Error: -chat-id is required")
	}
	if *out == "" {
		log.Fatal().Msg("Error: -out is required")
	}

	var since civil.Date
	if *sinceStr != "" {
		parsed, err := civil.ParseDate(*sinceStr)
		if err != nil {
			log.Fatal().Err(err).Str("since", *sinceStr).Msg("Error: invalid -since, expected YYYY-MM-DD")
		}
		since = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st := openStore(ctx, cfg, log)
	defer st.Close()

	p, err := st.GetProfileByChatID(ctx, *chatID)
	if err != nil {
		log.Fatal().Err(err).Int64("chat_id", *chatID).Msg("Resolving profile failed")
	}

	lines, err := export.New(st).ExportToFile(ctx, p.ID, since, *out)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	log.Info().Int("transactions", lines).Str("path", *out).Msg("Export written")

	if *gcsURI != "" {
		if err := export.Upload(ctx, *gcsURI, *out); err != nil {
			log.Fatal().Err(err).Str("gcs_uri", *gcsURI).Msg("Upload failed")
		}
		log.Info().Str("gcs_uri", *gcsURI).Msg("Export uploaded")
	}

	fmt.Println("Export completed successfully.")
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
