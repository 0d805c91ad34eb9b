package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"wot-clan-dashboard/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// Store wraps the SQL connection together with the driver name, since the
// upsert syntax differs between SQLite and MySQL.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and creates the schema.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "mysql":
		db, err = sql.Open("mysql", cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	default: // sqlite
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", cfg.Path)
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		// SQLite only supports 1 writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driverName(cfg.Driver)}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[Store] Initialized %s database", s.driver)
	return s, nil
}

func driverName(d string) string {
	if d == "mysql" {
		return "mysql"
	}
	return "sqlite"
}

// createTables creates the schema if it does not exist yet.
func (s *Store) createTables() error {
	var stmts []string
	if s.driver == "mysql" {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS players (
				account_id BIGINT PRIMARY KEY,
				nickname VARCHAR(100) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS garage_tanks (
				id BIGINT PRIMARY KEY AUTO_INCREMENT,
				account_id BIGINT NOT NULL,
				tank_id BIGINT NOT NULL,
				tank_name VARCHAR(150) NOT NULL DEFAULT '',
				tier INT NOT NULL DEFAULT 0,
				battles BIGINT NOT NULL DEFAULT 0,
				wins BIGINT NOT NULL DEFAULT 0,
				mark_of_mastery INT NOT NULL DEFAULT 0,
				is_premium BOOLEAN NOT NULL DEFAULT FALSE,
				nation VARCHAR(50) NOT NULL DEFAULT '',
				type VARCHAR(50) NOT NULL DEFAULT '',
				image_url VARCHAR(255) NOT NULL DEFAULT '',
				raw_json TEXT,
				last_updated DATETIME,
				INDEX idx_garage_account (account_id),
				INDEX idx_garage_tier (tier)
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY AUTO_INCREMENT,
				username VARCHAR(64) NOT NULL UNIQUE,
				password_hash VARCHAR(100) NOT NULL,
				role VARCHAR(20) NOT NULL DEFAULT 'member',
				account_id BIGINT NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS role_changes (
				id BIGINT PRIMARY KEY AUTO_INCREMENT,
				user_id BIGINT NOT NULL,
				old_role VARCHAR(20) NOT NULL,
				new_role VARCHAR(20) NOT NULL,
				changed_by VARCHAR(64) NOT NULL,
				ts DATETIME NOT NULL
			)`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS players (
				account_id INTEGER PRIMARY KEY,
				nickname TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS garage_tanks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id INTEGER NOT NULL,
				tank_id INTEGER NOT NULL,
				tank_name TEXT NOT NULL DEFAULT '',
				tier INTEGER NOT NULL DEFAULT 0,
				battles INTEGER NOT NULL DEFAULT 0,
				wins INTEGER NOT NULL DEFAULT 0,
				mark_of_mastery INTEGER NOT NULL DEFAULT 0,
				is_premium INTEGER NOT NULL DEFAULT 0,
				nation TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL DEFAULT '',
				image_url TEXT NOT NULL DEFAULT '',
				raw_json TEXT,
				last_updated DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_garage_account ON garage_tanks(account_id)`,
			`CREATE INDEX IF NOT EXISTS idx_garage_tier ON garage_tanks(tier)`,
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member',
				account_id INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS role_changes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				old_role TEXT NOT NULL,
				new_role TEXT NOT NULL,
				changed_by TEXT NOT NULL,
				ts DATETIME NOT NULL
			)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
