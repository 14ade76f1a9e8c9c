package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/nkaliyev/tengebot/internal/export"
	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/profile"
	"github.com/nkaliyev/tengebot/internal/store/bolt"
)

func seedProfile(t *testing.T) (*bolt.Store, *ledger.Profile) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "tengebot.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	p, _, err := profile.New(store, nil).Resolve(context.Background(), 118, "Нурлан")
	if err != nil {
		t.Fatalf("seeding profile: %v", err)
	}
	return store, p
}

func TestExportWritesJSONL(t *testing.T) {
	store, p := seedProfile(t)
	ctx := context.Background()
	engine := ledger.NewEngine(store, store)

	accounts, err := store.ListAccounts(ctx, p.ID)
	if err != nil {
		t.Fatalf("listing accounts: %v", err)
	}
	cats, err := store.ListCategories(ctx, p.ID, ledger.CategoryExpense, false)
	if err != nil {
		t.Fatalf("listing categories: %v", err)
	}

	_, err = engine.Record(ctx, ledger.Operation{
		ProfileID:       p.ID,
		Kind:            ledger.OpExpense,
		Amount:          4500,
		CategoryID:      cats[0].ID,
		SourceAccountID: accounts[0].ID,
		Date:            civil.Date{Year: 2026, Month: 8, Day: 5},
	})
	if err != nil {
		t.Fatalf("recording expense: %v", err)
	}
	_, err = engine.Record(ctx, ledger.Operation{
		ProfileID:            p.ID,
		Kind:                 ledger.OpTransfer,
		Amount:               20000,
		SourceAccountID:      accounts[0].ID,
		DestinationAccountID: accounts[1].ID,
		Date:                 civil.Date{Year: 2026, Month: 8, Day: 10},
	})
	if err != nil {
		t.Fatalf("recording transfer: %v", err)
	}

	var buf bytes.Buffer
	n, err := export.New(store).Export(ctx, p.ID, civil.Date{}, &buf)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d lines, want 2", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first, second export.Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line is not JSON: %v", err)
	}

	// Newest first.
	if first.Kind != "transfer" || first.Date != "2026-08-10" {
		t.Errorf("first = %s %s, want transfer 2026-08-10", first.Kind, first.Date)
	}
	if first.FromAccount != "Kaspi Gold" || first.ToAccount != "Наличные" {
		t.Errorf("transfer legs = %q/%q, want Kaspi Gold/Наличные", first.FromAccount, first.ToAccount)
	}
	if second.Kind != "expense" || second.Amount != 4500 {
		t.Errorf("second = %s %d, want expense 4500", second.Kind, second.Amount)
	}
	if second.Category != "Продукты" || second.Account != "Kaspi Gold" {
		t.Errorf("expense names = %q/%q, want Продукты/Kaspi Gold", second.Category, second.Account)
	}
}

func TestExportSinceFiltersOldRows(t *testing.T) {
	store, p := seedProfile(t)
	ctx := context.Background()
	engine := ledger.NewEngine(store, store)

	accounts, err := store.ListAccounts(ctx, p.ID)
	if err != nil {
		t.Fatalf("listing accounts: %v", err)
	}
	cats, err := store.ListCategories(ctx, p.ID, ledger.CategoryExpense, false)
	if err != nil {
		t.Fatalf("listing categories: %v", err)
	}

	for _, date := range []civil.Date{
		{Year: 2026, Month: 7, Day: 1},
		{Year: 2026, Month: 8, Day: 20},
	} {
		_, err := engine.Record(ctx, ledger.Operation{
			ProfileID:       p.ID,
			Kind:            ledger.OpExpense,
			Amount:          100,
			CategoryID:      cats[0].ID,
			SourceAccountID: accounts[0].ID,
			Date:            date,
		})
		if err != nil {
			t.Fatalf("recording expense on %s: %v", date, err)
		}
	}

	var buf bytes.Buffer
	n, err := export.New(store).Export(ctx, p.ID, civil.Date{Year: 2026, Month: 8, Day: 1}, &buf)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("exported %d lines since August, want 1", n)
	}
}

func TestExportToleratesMissingReferences(t *testing.T) {
	store, p := seedProfile(t)
	ctx := context.Background()

	err := store.InsertTransaction(ctx, &ledger.Transaction{
		ID:         uuid.NewString(),
		ProfileID:  p.ID,
		Date:       civil.Date{Year: 2026, Month: 8, Day: 1},
		Kind:       ledger.TransactionExpense,
		Amount:     300,
		CategoryID: "gone",
		AccountID:  "also-gone",
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("inserting raw transaction: %v", err)
	}

	var buf bytes.Buffer
	if _, err := export.New(store).Export(ctx, p.ID, civil.Date{}, &buf); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	var rec export.Record
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if rec.Category != "" || rec.Account != "" {
		t.Errorf("missing refs resolved to %q/%q, want empty names", rec.Category, rec.Account)
	}
	if rec.Amount != 300 {
		t.Errorf("amount = %d, want 300", rec.Amount)
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{uri: "gs://my-bucket/exports/ledger.jsonl", bucket: "my-bucket", object: "exports/ledger.jsonl"},
		{uri: "gs://b/o", bucket: "b", object: "o"},
		{uri: "gs://bucket-only", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "s3://bucket/obj", wantErr: true},
		{uri: "", wantErr: true},
	}

	for _, tt := range tests {
		bucket, object, err := export.SplitURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SplitURI(%q) should fail", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitURI(%q) returned error: %v", tt.uri, err)
			continue
		}
		if bucket != tt.bucket || object != tt.object {
			t.Errorf("SplitURI(%q) = %q/%q, want %q/%q", tt.uri, bucket, object, tt.bucket, tt.object)
		}
	}
}

func TestExportToFile(t *testing.T) {
	store, p := seedProfile(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	n, err := export.New(store).ExportToFile(ctx, p.ID, civil.Date{}, path)
	if err != nil {
		t.Fatalf("ExportToFile returned error: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh profile exported %d lines, want 0", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}
