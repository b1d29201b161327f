package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql connection with pool configuration.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the engine database under dataDir, configures
// pooling and runs migrations.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lifescore.db")
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	return open(connStr)
}

// NewMemoryDB opens an in-memory database, used by tests. The shared-cache
// named DSN keeps every pooled connection on the same database while
// isolating separate opens from each other.
func NewMemoryDB() (*DB, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
}

func open(connStr string) (*DB, error) {
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &DB{DB: db}
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database initialized")
	return database, nil
}

// migrate creates the necessary tables. The life_scores table is
// append-only: recomputation inserts a superseding row and never rewrites
// history. Admin overrides live in their own table so they are never
// silently merged into engine-computed records.
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS life_scores (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			cognitive_score REAL,
			portfolio_score REAL,
			endorsement_score REAL,
			composite_score REAL NOT NULL,
			rank INTEGER NOT NULL,
			percentile REAL NOT NULL,
			flags TEXT, -- JSON array of fraud flags
			region TEXT,
			primary_skill TEXT,
			computed_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS score_overrides (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			composite_score REAL NOT NULL,
			actor TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS endorsements (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			endorser_id TEXT NOT NULL,
			skill TEXT NOT NULL,
			relationship TEXT NOT NULL,
			comment TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			origin TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_life_scores_subject ON life_scores(subject_id, computed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_life_scores_composite ON life_scores(composite_score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_score_overrides_subject ON score_overrides(subject_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_endorsements_subject ON endorsements(subject_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_endorsements_endorser ON endorsements(endorser_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}
