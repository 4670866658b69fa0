package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(entries))
	}
	for i, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			t.Fatalf("unexpected migration file %q", entry.Name())
		}
		body, err := fs.ReadFile(Migrations(), entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Fatalf("migration %d (%s) is missing goose annotations", i, entry.Name())
		}
	}
}
