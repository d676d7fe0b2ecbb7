// Package prefs persists the title generator's per-client preferences in a
// small SQLite key-value table.
package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	KeyUseAPI = "abstractMuse:useApi"
	KeyCount  = "abstractMuse:count"
)

const DefaultCount = 3

var (
	ErrNotFound = errors.New("prefs: nothing stored for client")
	errStoreNil = errors.New("prefs: store is nil")
)

// Preference is what the title page restores on load.
type Preference struct {
	UseAPIWords bool `json:"use_api"`
	TitleCount  int  `json:"count"`
}

func Default() Preference {
	return Preference{UseAPIWords: true, TitleCount: DefaultCount}
}

// Entry is one stored key for one browser client.
type Entry struct {
	ClientID  string `gorm:"primaryKey;type:varchar(36)"`
	Key       string `gorm:"column:pref_key;primaryKey;type:varchar(64)"`
	Value     string
	UpdatedAt time.Time
}

type Store struct {
	DB *gorm.DB
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// sqlite serializes writers anyway
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{DB: db, db: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the stored preference, filling unset or unparsable keys from
// Default. ErrNotFound means neither key was ever written for clientID.
func (s *Store) Load(clientID string) (Preference, error) {
	p := Default()
	if s == nil || s.DB == nil {
		return p, errStoreNil
	}

	var entries []Entry
	err := s.DB.Where("client_id = ? AND pref_key IN ?", clientID, []string{KeyUseAPI, KeyCount}).Find(&entries).Error
	if err != nil {
		return p, fmt.Errorf("querying prefs: %w", err)
	}
	if len(entries) == 0 {
		return p, ErrNotFound
	}

	for _, e := range entries {
		switch e.Key {
		case KeyUseAPI:
			p.UseAPIWords = e.Value == "true"
		case KeyCount:
			if n, err := strconv.Atoi(strings.TrimSpace(e.Value)); err == nil && n > 0 {
				p.TitleCount = n
			}
		}
	}
	return p, nil
}

// Save writes both keys, replacing earlier values.
func (s *Store) Save(clientID string, p Preference) error {
	if s == nil || s.DB == nil {
		return errStoreNil
	}
	now := time.Now()
	entries := []Entry{
		{ClientID: clientID, Key: KeyUseAPI, Value: strconv.FormatBool(p.UseAPIWords), UpdatedAt: now},
		{ClientID: clientID, Key: KeyCount, Value: strconv.Itoa(p.TitleCount), UpdatedAt: now},
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("saving prefs: %w", err)
	}
	return nil
}
