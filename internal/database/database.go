package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hotelbook/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the SQLite store behind the reservation, catalog, popularity and
// interaction collaborators.
type DB struct {
	*sql.DB
	logger *zerolog.Logger

	mu            sync.RWMutex
	resourceCache map[string]models.Resource
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Один писатель: SQLite сериализует записи, а :memory: живет в одном соединении
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{
		DB:            sqlDB,
		logger:        logger,
		resourceCache: make(map[string]models.Resource),
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS resources (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            name TEXT NOT NULL,
            capacity INTEGER NOT NULL CHECK (capacity >= 1),
            category TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            ambiance TEXT NOT NULL DEFAULT '',
            average_rating REAL,
            base_price REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'Available',
            image TEXT NOT NULL DEFAULT '',
            total_bookings INTEGER NOT NULL DEFAULT 0,
            sort_order INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id TEXT PRIMARY KEY,
            resource_id TEXT NOT NULL REFERENCES resources(id),
            user_id TEXT NOT NULL DEFAULT '',
            guest_name TEXT NOT NULL DEFAULT '',
            party_size INTEGER NOT NULL DEFAULT 1,
            start_ms INTEGER NOT NULL,
            end_ms INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'confirmed',
            total_price REAL NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            CHECK (start_ms < end_ms)
        )`,
		`CREATE TABLE IF NOT EXISTS interactions (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL DEFAULT '',
            resource_id TEXT NOT NULL,
            kind TEXT NOT NULL DEFAULT '',
            interaction_type TEXT NOT NULL,
            rating REAL,
            occasion TEXT NOT NULL DEFAULT '',
            party_size INTEGER NOT NULL DEFAULT 0,
            time_slot TEXT NOT NULL DEFAULT '',
            reservation_id TEXT NOT NULL DEFAULT '',
            from_recommendation INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_resources_kind ON resources(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_resource_window ON reservations(resource_id, start_ms, end_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_resource ON interactions(resource_id, interaction_type)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
