// Package storage provides persistent storage using SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides persistent storage for a Dini node.
type Storage struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// New creates a new Storage instance.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "dini.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// initSchema creates all database tables.
func (s *Storage) initSchema() error {
	schema := `
	-- Known peers table (address book, survives restarts)
	CREATE TABLE IF NOT EXISTS peers (
		peer_id TEXT PRIMARY KEY,
		addresses TEXT,
		first_seen INTEGER,
		last_seen INTEGER,
		last_connected INTEGER,
		connection_count INTEGER DEFAULT 0,
		is_bootstrap INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_peers_last_seen ON peers(last_seen);

	-- =========================================================================
	-- Blockchain persistence (one row per block, in chain order)
	-- =========================================================================

	CREATE TABLE IF NOT EXISTS blocks (
		block_hash TEXT PRIMARY KEY,
		previous_hash TEXT NOT NULL,
		height INTEGER NOT NULL,
		difficulty INTEGER NOT NULL,
		nonce INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		transactions BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_blocks_height ON blocks(height);
	CREATE INDEX IF NOT EXISTS idx_blocks_previous ON blocks(previous_hash);

	-- =========================================================================
	-- Mempool persistence (pending transactions not yet in a block)
	-- =========================================================================

	CREATE TABLE IF NOT EXISTS mempool_transactions (
		signature_prefix TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		tip INTEGER NOT NULL,
		received_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mempool_tip ON mempool_transactions(tip DESC);

	-- =========================================================================
	-- Wallet actions (the light-chain view kept by the user role)
	-- =========================================================================

	CREATE TABLE IF NOT EXISTS wallet_actions (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		counterparty TEXT,
		timestamp INTEGER NOT NULL,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_actions_timestamp ON wallet_actions(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_wallet_actions_status ON wallet_actions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
