package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	src := source()
	found, err := src.FindMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(found) == 0 {
		t.Fatal("no migrations embedded")
	}
	first := found[0]
	if first.Id != "1_fixture_stats.sql" {
		t.Fatalf("unexpected first migration %s", first.Id)
	}
	if len(first.Up) == 0 || !strings.Contains(strings.Join(first.Up, "\n"), "fixture_stats") {
		t.Fatalf("up migration does not create fixture_stats: %v", first.Up)
	}
	if len(first.Down) == 0 {
		t.Fatal("missing down migration")
	}
}
