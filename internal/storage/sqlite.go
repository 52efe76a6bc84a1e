//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/SoundAlike/pkg/utils"
)

const errDBClientNil = "db client is nil"

// CachedFingerprint is one row of the cache table.
type CachedFingerprint struct {
	Path      string `gorm:"primaryKey;type:text"`
	Payload   []byte `gorm:"type:blob;not null"`
	Size      int
	UpdatedAt time.Time
}

// SQLiteStore keeps cache entries in a single SQLite file through gorm.
type SQLiteStore struct {
	DB *gorm.DB
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&CachedFingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{DB: db, db: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(key string) ([]byte, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row CachedFingerprint
	err := s.DB.Where("path = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached fingerprint: %w", err)
	}
	return row.Payload, nil
}

// Put inserts or replaces the entry for key.
func (s *SQLiteStore) Put(key string, value []byte) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	row := CachedFingerprint{
		Path:      key,
		Payload:   value,
		Size:      len(value),
		UpdatedAt: time.Now(),
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("storing cached fingerprint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count() (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := s.DB.Model(&CachedFingerprint{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting cached fingerprints: %w", err)
	}
	return n, nil
}

