package database

import (
	"testing"
	"testing/fstest"
)

func TestMigrationNamesOrdered(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_late.sql":   {Data: []byte("SELECT 1;")},
		"migrations/001_schema.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":      {Data: []byte("notes")},
		"migrations/002_more.sql":   {Data: []byte("SELECT 1;")},
	}
	names, err := migrationNames(fsys, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_schema.sql", "002_more.sql", "010_late.sql"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestEmbeddedSchemaPresent(t *testing.T) {
	names, err := migrationNames(migrationsFS, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "001_schema.sql" {
		t.Errorf("embedded = %v", names)
	}
}
