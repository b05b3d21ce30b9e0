package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/rentalz-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Embedded(), "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := fs.ReadFile(migrate.Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestReservationMigrationGuardsOverlaps(t *testing.T) {
	content := readMigration(t, "create_reservations_payments")

	checks := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist",
		"CREATE TABLE IF NOT EXISTS reservations",
		"CHECK (end_date > start_date)",
		"CONSTRAINT reservations_no_overlap EXCLUDE USING gist",
		"tstzrange(start_date, end_date, '[)') WITH &&",
		"WHERE (status IN ('PENDING', 'CONFIRMED'))",
		"CONSTRAINT payments_reservation_id_key UNIQUE (reservation_id)",
		"CREATE TABLE IF NOT EXISTS refunds",
		"DROP TABLE IF EXISTS reservations",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEngagementMigrationKeepsPairsUnique(t *testing.T) {
	content := readMigration(t, "create_engagement_tables")

	checks := []string{
		"CONSTRAINT favorites_user_vehicle_key UNIQUE (user_id, vehicle_id)",
		"CONSTRAINT bookmarks_user_vehicle_key UNIQUE (user_id, vehicle_id)",
		"CHECK (rating BETWEEN 1 AND 5)",
		"CONSTRAINT opening_hours_day_key UNIQUE (day_of_week)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestScaffoldWritesValidMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	path, err := migrate.Scaffold(dir, "Add Vehicle Photos!", at)
	if err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	if filepath.Base(path) != "20260504030201_add_vehicle_photos.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("scaffolded migration should validate: %v", err)
	}
	if _, err := migrate.Scaffold(dir, "add vehicle photos", at); err == nil {
		t.Fatal("expected an error for an existing file")
	}
}

func TestScaffoldRejectsEmptyName(t *testing.T) {
	if _, err := migrate.Scaffold(t.TempDir(), " !! ", time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_ok.sql":   {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"20260101000000_dup.sql":  {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"bad-name.sql":            {Data: []byte("")},
		"20260102000000_half.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n")},
		"README.md":               {Data: []byte("ignored")},
	}
	err := migrate.Validate(fsys)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"version already used", "bad-name.sql", `missing "-- +goose Down"`, "StatementBegin vs"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %q", msg, want)
		}
	}
}
