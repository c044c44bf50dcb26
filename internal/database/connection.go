package database

import (
	"os"
	"path/filepath"

	"github.com/yeo-menghan/big-brother-watching/internal/models"

	"github.com/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the diagnostics database: session history and capture-error
// rows live here, while the CSV activity log stays the source of truth
// for records.
type DB struct {
	*gorm.DB
}

// DefaultPath returns ~/.config/bbw/bbw.db, creating the directory if
// needed.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}

	dbDir := filepath.Join(homeDir, ".config", "bbw")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create database directory")
	}
	return filepath.Join(dbDir, "bbw.db"), nil
}

// Connect opens the sqlite diagnostics database. An empty path falls
// back to DefaultPath.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open diagnostics database %s", dbPath)
	}
	return &DB{db}, nil
}

// Initialize migrates the session-history and capture-error tables.
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.SessionRecord{}, &models.CaptureError{}); err != nil {
		return errors.Wrap(err, "failed to migrate diagnostics schema")
	}
	return nil
}

// Close closes the underlying sqlite connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
