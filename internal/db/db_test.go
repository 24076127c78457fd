package db_test

import (
	"path/filepath"
	"testing"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/db"
	"github.com/opensignal/signalhub/internal/db/models"
)

func TestMakeDBInMemoryDatabase(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Database: config.Database{Driver: config.DatabaseDriverSQLite}}
	database, err := db.MakeDB(&cfg)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if database == nil {
		t.Fatal("expected non-nil database instance, got nil")
	}
}

func TestMakeDBMigratesTables(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Database: config.Database{Driver: config.DatabaseDriverSQLite}}
	database, err := db.MakeDB(&cfg)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	for _, m := range []any{&models.Profile{}, &models.ServerHint{}, &models.InviteToken{}, &models.HouseEvent{}, &models.MemberAck{}, &models.Ratelimit{}} {
		if !database.Migrator().HasTable(m) {
			t.Errorf("expected table for %T to exist after migration", m)
		}
	}
}

func TestMakeDBFileBackedPersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	cfg := config.Config{Database: config.Database{Driver: config.DatabaseDriverSQLite, Database: dbPath}}

	db1, err := db.MakeDB(&cfg)
	if err != nil {
		t.Fatalf("first MakeDB failed: %v", err)
	}
	if err := db1.Create(&models.ServerHint{SigningPubkey: "pk1", EncryptedPayload: []byte("x")}).Error; err != nil {
		t.Fatalf("failed to insert row: %v", err)
	}
	sqlDB1, err := db1.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	if err := sqlDB1.Close(); err != nil {
		t.Fatalf("failed to close sql.DB: %v", err)
	}

	db2, err := db.MakeDB(&cfg)
	if err != nil {
		t.Fatalf("second MakeDB failed: %v", err)
	}
	var hint models.ServerHint
	if err := db2.First(&hint, "signing_pubkey = ?", "pk1").Error; err != nil {
		t.Fatalf("expected row to survive reopen: %v", err)
	}
}

func TestMakeDBUnsupportedDriver(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Database: config.Database{Driver: "oracle"}}
	if _, err := db.MakeDB(&cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
