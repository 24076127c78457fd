//nolint:golint,wrapcheck
package migration

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate runs schema migrations beyond what AutoMigrate covers in db.MakeDB.
// AutoMigrate creates new tables/columns; this list is for changes
// AutoMigrate can't express, such as renames and data backfills.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{})
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
