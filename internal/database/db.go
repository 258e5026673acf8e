package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFileName = "pfem.db"

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens the store under dataDir, migrates it and prepares the hot statements
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite serializes writers; a small pool keeps busy waits short
	pool := NewConnectionPool(db, 8, 4, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// Config versions are append-only; a new revision never rewrites an old one
		`CREATE TABLE IF NOT EXISTS campaign_configs (
			campaign_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (campaign_id, version)
		)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			campaign_id TEXT NOT NULL,
			config_version INTEGER NOT NULL,
			status TEXT NOT NULL, -- 'settled', 'rejected', 'needs_review'
			total_reward REAL NOT NULL DEFAULT 0,
			payout TEXT NOT NULL DEFAULT '0',
			breakdown_json TEXT,
			error_kind TEXT,
			error_field TEXT,
			error_message TEXT,
			created_at DATETIME NOT NULL,
			UNIQUE(batch_id, record_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_settlements_batch ON settlements(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_campaign ON settlements(campaign_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_config_version": `INSERT INTO campaign_configs (campaign_id, version, config_json, created_at)
			SELECT ?, COALESCE(MAX(version), 0) + 1, ?, ? FROM campaign_configs WHERE campaign_id = ?
			RETURNING version`,

		"get_config_version": `SELECT campaign_id, version, config_json, created_at
			FROM campaign_configs WHERE campaign_id = ? AND version = ?`,

		"get_latest_config": `SELECT campaign_id, version, config_json, created_at
			FROM campaign_configs WHERE campaign_id = ? ORDER BY version DESC LIMIT 1`,

		"insert_settlement": `INSERT INTO settlements (
			id, batch_id, record_id, campaign_id, config_version, status,
			total_reward, payout, breakdown_json, error_kind, error_field, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
