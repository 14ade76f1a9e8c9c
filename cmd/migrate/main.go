package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/nkaliyev/tengebot/internal/logger"
)

// migration is one numbered SQL file, with {{PROJECT_ID}}/{{DATASET_ID}}
// placeholders already substituted. The checksum covers the raw file, so
// the same migration applied to different datasets records identically.
type migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// filePattern matches migration filenames: 0001_create_profiles.sql.
var filePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	var (
		projectID = flag.String("project", os.Getenv("BIGQUERY_PROJECT_ID"), "GCP project ID (or set BIGQUERY_PROJECT_ID)")
		datasetID = flag.String("dataset", "tengebot", "BigQuery dataset ID")
		appliedBy = flag.String("applied-by", "migrate-cli", "Name recorded against applied migrations")
		dir       = flag.String("migrations", "migrations/bigquery", "Path to the migrations directory")
		dryRun    = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	log := logger.New("migrate")

	if *projectID == "" {
		log.Fatal().Msg("Error: -project is required")
	}

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating BigQuery client failed")
	}
	defer client.Close()

	r := runner{
		client:    client,
		projectID: *projectID,
		datasetID: *datasetID,
		appliedBy: *appliedBy,
	}

	migrations, err := loadMigrations(*dir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("Loading migrations failed")
	}
	log.Info().Int("files", len(migrations)).Str("dataset", *datasetID).Msg("Loaded migrations")

	if err := r.ensureLedgerTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Creating schema_migrations table failed")
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Reading applied migrations failed")
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			log.Info().Msgf("  [SKIP] %04d_%s (already applied)", m.Version, m.Name)
			continue
		}
		if *dryRun {
			log.Info().Msgf("  [PLAN] %04d_%s", m.Version, m.Name)
			count++
			continue
		}

		log.Info().Msgf("  [RUN]  %04d_%s", m.Version, m.Name)
		if err := r.apply(ctx, m); err != nil {
			log.Fatal().Err(err).Msgf("Migration %04d_%s failed", m.Version, m.Name)
		}
		log.Info().Msgf("  [OK]   %04d_%s", m.Version, m.Name)
		count++
	}

	switch {
	case count == 0:
		log.Info().Msg("No new migrations to apply, dataset is up to date")
	case *dryRun:
		log.Info().Int("pending", count).Msg("Dry run, nothing applied")
	default:
		log.Info().Int("applied", count).Msg("Migrations applied")
	}
}

// loadMigrations reads and orders the numbered SQL files under dir.
func loadMigrations(dir, projectID, datasetID string) ([]migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := filePattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, migration{
			Version:  version,
			Name:     matches[2],
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

type runner struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func (r runner) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", r.projectID, r.datasetID)
}

func (r runner) run(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (r runner) ensureLedgerTable(ctx context.Context) error {
	return r.run(ctx, r.client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version     INT64 NOT NULL,
			name        STRING NOT NULL,
			applied_at  TIMESTAMP NOT NULL,
			checksum    STRING,
			applied_by  STRING
		)
	`, r.table())))
}

func (r runner) appliedVersions(ctx context.Context) (map[int]bool, error) {
	q := r.client.Query(fmt.Sprintf(`SELECT version FROM %s ORDER BY version`, r.table()))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]bool)
	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		applied[int(row.Version)] = true
	}
	return applied, nil
}

// apply runs the migration and records it. The two statements are separate
// jobs: a crash between them leaves the migration unrecorded and it reruns
// on the next invocation, so migrations must stay idempotent
// (CREATE TABLE IF NOT EXISTS and friends).
func (r runner) apply(ctx context.Context, m migration) error {
	if err := r.run(ctx, r.client.Query(m.SQL)); err != nil {
		return err
	}

	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, r.table()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: r.appliedBy},
	}
	return r.run(ctx, q)
}
