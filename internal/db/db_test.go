package db

import (
	"testing"

	"github.com/friendsincode/grimnir_reels/internal/config"
	"github.com/friendsincode/grimnir_reels/internal/models"
)

func TestConnectMigrateSQLite(t *testing.T) {
	database, err := Connect(&config.Config{DBBackend: config.DatabaseSQLite, DBDSN: ":memory:", Environment: "test"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer Close(database)

	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, table := range []string{"collections", "media_items"} {
		if !database.Migrator().HasTable(table) {
			t.Fatalf("table %s missing after migrate", table)
		}
	}

	legacy := models.MediaItem{ID: "old", CollectionID: "c", Kind: "photo", SourceURL: "https://cdn.example/old.jpg"}
	if err := database.Create(&legacy).Error; err != nil {
		t.Fatalf("create legacy item: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("re-run Migrate: %v", err)
	}

	var got models.MediaItem
	if err := database.First(&got, "id = ?", "old").Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if got.Kind != models.KindImage {
		t.Fatalf("kind = %q, want %q", got.Kind, models.KindImage)
	}
	UpdateConnectionMetrics(database)
}

func TestConnectRejectsUnknownBackend(t *testing.T) {
	if _, err := Connect(&config.Config{DBBackend: "oracle", DBDSN: "x"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
