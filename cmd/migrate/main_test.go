package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()

	write := func(name, sql string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("0002_create_accounts.sql", "CREATE TABLE IF NOT EXISTS `{{PROJECT_ID}}.{{DATASET_ID}}.accounts` (account_id STRING)")
	write("0001_create_profiles.sql", "CREATE TABLE IF NOT EXISTS `{{PROJECT_ID}}.{{DATASET_ID}}.profiles` (profile_id STRING)")
	write("notes.md", "not a migration")
	write("001_bad_version.sql", "SELECT 1")

	migrations, err := loadMigrations(dir, "my-project", "tengebot")
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("Expected versions ordered 1,2, got %d,%d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "create_profiles" {
		t.Errorf("Expected name create_profiles, got %q", migrations[0].Name)
	}

	want := "CREATE TABLE IF NOT EXISTS `my-project.tengebot.profiles` (profile_id STRING)"
	if migrations[0].SQL != want {
		t.Errorf("Placeholders not substituted:\n got %q\nwant %q", migrations[0].SQL, want)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Error("Expected distinct non-empty checksums per file")
	}
}

func TestLoadMigrations_ChecksumIgnoresPlaceholderValues(t *testing.T) {
	sql := "CREATE TABLE IF NOT EXISTS `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id STRING)"

	dirA := t.TempDir()
	dirB := t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		if err := os.WriteFile(filepath.Join(dir, "0001_t.sql"), []byte(sql), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	a, err := loadMigrations(dirA, "project-a", "dataset_a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := loadMigrations(dirB, "project-b", "dataset_b")
	if err != nil {
		t.Fatal(err)
	}

	// The checksum tracks the file, not the dataset it targets.
	if a[0].Checksum != b[0].Checksum {
		t.Errorf("Checksums differ across datasets: %s vs %s", a[0].Checksum, b[0].Checksum)
	}
	if a[0].SQL == b[0].SQL {
		t.Error("Expected substituted SQL to differ across datasets")
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := loadMigrations(filepath.Join(t.TempDir(), "nope"), "p", "d"); err == nil {
		t.Fatal("Expected an error for a missing directory")
	}
}
