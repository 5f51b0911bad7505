package database

import (
	"database/sql"
	"fmt"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// Migrate creates or upgrades every table described in package model. The
// repositories talk plain SQL; gorm is only used here to keep the schema in
// step with the structs.
func Migrate(dialector gorm.Dialector) error {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: false,
	})
	if err != nil {
		return fmt.Errorf("open gorm: %w", err)
	}
	if err := gdb.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// MySQL wraps an open connection pool in a gorm dialector.
func MySQL(db *sql.DB) gorm.Dialector {
	return gormmysql.New(gormmysql.Config{Conn: db, SkipInitializeWithVersion: false})
}
