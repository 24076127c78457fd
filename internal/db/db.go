// Package db opens and migrates the hub's optional durable store. Every
// table it defines is an upsert-only mirror of in-memory state: losing the
// database loses durability, not correctness, of a running hub.
package db

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/db/migration"
	"github.com/opensignal/signalhub/internal/db/models"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	connsPerCPU = 10
	maxIdleTime = 10 * time.Minute
)

// MakeDB opens the configured SQL backend, migrates it, and tunes the
// connection pool. The sqlite driver needs no running server, so this always
// succeeds for a zero-config deployment.
func MakeDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Tracing.OTLPEndpoint != "" {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to trace database: %w", err)
		}
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.ServerHint{},
		&models.InviteToken{},
		&models.HouseEvent{},
		&models.MemberAck{},
		&models.Ratelimit{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migration.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return db, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.Database.Driver {
	case config.DatabaseDriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Username,
			cfg.Database.Database, cfg.Database.Password)
		if extra := strings.Join(cfg.Database.ExtraParameters, " "); extra != "" {
			dsn = dsn + " " + extra
		}
		return postgres.Open(dsn), nil
	case config.DatabaseDriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host,
			cfg.Database.Port, cfg.Database.Database)
		if extra := strings.Join(cfg.Database.ExtraParameters, "&"); extra != "" {
			dsn = dsn + "?" + extra
		}
		return mysql.Open(dsn), nil
	case config.DatabaseDriverSQLite, "":
		dsn := cfg.Database.Database
		if len(cfg.Database.ExtraParameters) > 0 {
			dsn = dsn + "?" + strings.Join(cfg.Database.ExtraParameters, "&")
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
