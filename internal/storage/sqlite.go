package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bantrap/internal/models"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS community_configs (
	community_id    TEXT PRIMARY KEY,
	trap_channel_id TEXT NOT NULL DEFAULT '',
	log_channel_id  TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
)`

// SQLiteBackend stores community configs in an embedded SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// one writer keeps SQLITE_BUSY out of the mutation path
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context) (map[string]models.CommunityConfig, error) {
	configs := map[string]models.CommunityConfig{}

	rows, err := b.db.QueryContext(ctx,
		`SELECT community_id, trap_channel_id, log_channel_id, created_at, updated_at FROM community_configs`)
	if err != nil {
		return configs, fmt.Errorf("failed to query community configs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cfg                  models.CommunityConfig
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&cfg.CommunityID, &cfg.TrapChannelID, &cfg.LogChannelID, &createdAt, &updatedAt); err != nil {
			return map[string]models.CommunityConfig{}, fmt.Errorf("failed to scan community config: %w", err)
		}
		cfg.CreatedAt = time.UnixMilli(createdAt).UTC()
		cfg.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		configs[cfg.CommunityID] = cfg
	}
	if err := rows.Err(); err != nil {
		return map[string]models.CommunityConfig{}, fmt.Errorf("failed to read community configs: %w", err)
	}
	return configs, nil
}

// Persist implements Backend by upserting the changed community only.
func (b *SQLiteBackend) Persist(ctx context.Context, snapshot map[string]models.CommunityConfig, changed string) error {
	cfg := snapshot[changed]
	now := time.Now().UTC().UnixMilli()

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO community_configs (community_id, trap_channel_id, log_channel_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(community_id) DO UPDATE SET
		   trap_channel_id = excluded.trap_channel_id,
		   log_channel_id = excluded.log_channel_id,
		   updated_at = excluded.updated_at`,
		changed, cfg.TrapChannelID, cfg.LogChannelID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save community %s: %w", changed, err)
	}
	return nil
}

// Close closes the SQLite handle.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
