// internal/store/database.go
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/apexsim/raceline/internal/model"
)

// DatabaseManager handles database connections for the DB-backed slot.
// It prefers Postgres when configured and falls back to a local SQLite
// file, so path data survives even with no server available.
type DatabaseManager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewDatabaseManager creates a new database manager.
func NewDatabaseManager(log zerolog.Logger) *DatabaseManager {
	return &DatabaseManager{
		IsValid:         false,
		ShouldSaveLocal: false,
		Logger:          log,
	}
}

// Connect establishes a database connection, falling back to SQLite if
// Postgres fails or is not configured.
func (m *DatabaseManager) Connect() error {
	var err error

	if viper.GetString("db.host") != "" {
		m.DB, err = m.getPostgresDB()
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		}
	}
	if m.DB == nil {
		m.ShouldSaveLocal = true
		m.DB, err = m.getSqliteDB("")
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}

	if err = m.SqlDB.Ping(); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	m.IsValid = true
	m.Logger.Info().Bool("sqlite", m.ShouldSaveLocal).Msg("Connected to database")

	if !m.ShouldSaveLocal {
		m.SqlDB.SetMaxOpenConns(10)
	}

	return m.DB.AutoMigrate(model.DatabaseModels...)
}

// Close releases the underlying connection.
func (m *DatabaseManager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// getPostgresDB returns a connection to the Postgres database.
func (m *DatabaseManager) getPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	m.Logger.Debug().Msgf("Connecting to Postgres DB at '%s'", dsn)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// getSqliteDB returns a connection to the local SQLite database,
// creating the file if needed. An empty path uses the configured
// paths.dir.
func (m *DatabaseManager) getSqliteDB(path string) (*gorm.DB, error) {
	if path == "" {
		dir := viper.GetString("paths.dir")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
		path = filepath.Join(dir, "raceline.db")
	}
	m.SqliteFilePath = path

	m.Logger.Debug().Str("path", path).Msg("Opening SQLite DB")

	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// DBSlot stores the blob in a single PathSlot row keyed by slot name.
type DBSlot struct {
	db   *gorm.DB
	slot string
}

// NewDBSlot creates a database-backed slot using the manager's
// connection.
func NewDBSlot(m *DatabaseManager, slotName string) (*DBSlot, error) {
	if m == nil || m.DB == nil || !m.IsValid {
		return nil, errors.New("database manager not connected")
	}
	return &DBSlot{db: m.DB, slot: slotName}, nil
}

// Read returns the blob from the slot row, or nil when the row has
// never been written.
func (s *DBSlot) Read() ([]byte, error) {
	var row model.PathSlot
	err := s.db.Where("slot_name = ?", s.slot).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading slot row: %w", err)
	}
	return []byte(row.Data), nil
}

// Write upserts the slot row with the new blob.
func (s *DBSlot) Write(data []byte) error {
	row := model.PathSlot{
		SlotName:  s.slot,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	err := s.db.Save(&row).Error
	if err != nil {
		return fmt.Errorf("writing slot row: %w", err)
	}
	return nil
}

// Name returns the slot row key.
func (s *DBSlot) Name() string {
	return s.slot
}
