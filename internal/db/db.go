// Package db owns the SQLite connection and schema migration.
package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database and migrates all models.
func InitDB(dbPath string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := conn.AutoMigrate(
		&models.Integration{},
		&models.Metric{},
		&models.Report{},
	); err != nil {
		return nil, err
	}

	return conn, nil
}
