// Package db implements the unified Pongogo persistence substrate: a single
// embedded SQLite database holding routing events, trigger dictionaries,
// artifact and observation lifecycles, scan history, and guidance
// fulfillment tracking.
//
// Location: <project_root>/.pongogo/pongogo.db, falling back to
// <home>/.pongogo/pongogo.db when no project root is available.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"pongogo/internal/logging"
)

// SchemaVersion is the current schema version string.
const SchemaVersion = "3.1.0"

// schema is the full DDL. Every statement is idempotent
// (CREATE ... IF NOT EXISTS), so re-applying it on an existing database
// preserves rows. Forward-only: downgrades are not supported.
const schema = `
-- Schema metadata
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Routing events (core event logging)
CREATE TABLE IF NOT EXISTS routing_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    created_at TEXT DEFAULT CURRENT_TIMESTAMP,
    user_message TEXT NOT NULL,
    message_hash TEXT,
    routed_instructions TEXT,
    instruction_count INTEGER DEFAULT 0,
    routing_scores TEXT,
    engine_version TEXT DEFAULT 'durian-0.6.2',
    session_id TEXT,
    context TEXT,
    routing_latency_ms REAL,
    exclude_from_eval BOOLEAN DEFAULT 0,
    exclude_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_routing_events_timestamp ON routing_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_routing_events_session ON routing_events(session_id);
CREATE INDEX IF NOT EXISTS idx_routing_events_engine ON routing_events(engine_version);

-- Routing triggers (friction, guidance, violation dictionaries)
CREATE TABLE IF NOT EXISTS routing_triggers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trigger_type TEXT NOT NULL,
    trigger_key TEXT NOT NULL,
    trigger_value TEXT,
    category TEXT,
    description TEXT,
    source TEXT NOT NULL DEFAULT 'built_in',
    confidence TEXT DEFAULT 'HIGH',
    enabled BOOLEAN DEFAULT 1,
    created_at TEXT DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
    created_by TEXT,
    UNIQUE(trigger_type, trigger_key)
);

CREATE INDEX IF NOT EXISTS idx_triggers_type ON routing_triggers(trigger_type);
CREATE INDEX IF NOT EXISTS idx_triggers_enabled ON routing_triggers(enabled);

-- Artifact discovered (file-based knowledge from repo)
CREATE TABLE IF NOT EXISTS artifact_discovered (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_file TEXT NOT NULL,
    source_type TEXT NOT NULL,
    section_title TEXT,
    section_content TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    keywords TEXT,
    status TEXT NOT NULL DEFAULT 'DISCOVERED',
    promoted_to INTEGER,
    discovered_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    promoted_at TEXT,
    archived_at TEXT,
    archive_reason TEXT,
    UNIQUE(content_hash)
);

CREATE INDEX IF NOT EXISTS idx_artifact_discovered_status ON artifact_discovered(status);
CREATE INDEX IF NOT EXISTS idx_artifact_discovered_source_type ON artifact_discovered(source_type);

-- Artifact implemented (promoted to instruction files)
CREATE TABLE IF NOT EXISTS artifact_implemented (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    discovered_id INTEGER,
    instruction_file TEXT NOT NULL,
    instruction_id TEXT,
    instruction_category TEXT,
    content_hash TEXT NOT NULL,
    word_count INTEGER,
    title TEXT,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
    deprecated_at TEXT,
    deprecated_reason TEXT,
    times_routed INTEGER DEFAULT 0,
    avg_routing_score REAL,
    FOREIGN KEY (discovered_id) REFERENCES artifact_discovered(id)
);

CREATE INDEX IF NOT EXISTS idx_artifact_implemented_status ON artifact_implemented(status);
CREATE INDEX IF NOT EXISTS idx_artifact_implemented_category ON artifact_implemented(instruction_category);

-- Observation discovered (runtime guidance/patterns)
CREATE TABLE IF NOT EXISTS observation_discovered (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id INTEGER,
    observation_type TEXT NOT NULL,
    observation_content TEXT NOT NULL,
    observation_target TEXT,
    guidance_type TEXT,
    should_persist BOOLEAN DEFAULT 1,
    persistence_scope TEXT DEFAULT 'project',
    status TEXT NOT NULL DEFAULT 'DISCOVERED',
    promoted_to INTEGER,
    session_id TEXT,
    context TEXT,
    discovered_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    reviewed_at TEXT,
    promoted_at TEXT,
    rejected_at TEXT,
    rejection_reason TEXT,
    FOREIGN KEY (event_id) REFERENCES routing_events(id)
);

CREATE INDEX IF NOT EXISTS idx_observation_discovered_status ON observation_discovered(status);
CREATE INDEX IF NOT EXISTS idx_observation_discovered_type ON observation_discovered(observation_type);

-- Observation implemented (promoted to triggers/instructions/rules)
CREATE TABLE IF NOT EXISTS observation_implemented (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    discovered_id INTEGER,
    implementation_type TEXT NOT NULL,
    trigger_id INTEGER,
    instruction_id INTEGER,
    rule_content TEXT,
    rule_scope TEXT,
    title TEXT,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
    deprecated_at TEXT,
    deprecated_reason TEXT,
    times_applied INTEGER DEFAULT 0,
    feedback_positive INTEGER DEFAULT 0,
    feedback_negative INTEGER DEFAULT 0,
    FOREIGN KEY (discovered_id) REFERENCES observation_discovered(id),
    FOREIGN KEY (trigger_id) REFERENCES routing_triggers(id),
    FOREIGN KEY (instruction_id) REFERENCES artifact_implemented(id)
);

CREATE INDEX IF NOT EXISTS idx_observation_implemented_status ON observation_implemented(status);
CREATE INDEX IF NOT EXISTS idx_observation_implemented_type ON observation_implemented(implementation_type);

-- Scan history (pongogo init runs)
CREATE TABLE IF NOT EXISTS scan_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_date TEXT NOT NULL,
    scan_type TEXT NOT NULL,
    source_type TEXT NOT NULL,
    files_scanned INTEGER DEFAULT 0,
    sections_found INTEGER DEFAULT 0,
    new_discoveries INTEGER DEFAULT 0,
    updated_discoveries INTEGER DEFAULT 0,
    duration_ms INTEGER,
    engine_version TEXT,
    pongogo_version TEXT
);

CREATE INDEX IF NOT EXISTS idx_scan_history_date ON scan_history(scan_date);

-- Guidance fulfillment tracking: whether guidance given in message N is
-- operationalized in subsequent messages
CREATE TABLE IF NOT EXISTS guidance_fulfillment (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    guidance_event_id INTEGER,
    guidance_type TEXT NOT NULL,
    guidance_content TEXT NOT NULL,
    action_type TEXT NOT NULL,

    fulfillment_status TEXT NOT NULL DEFAULT 'pending'
        CHECK(fulfillment_status IN ('pending', 'in_progress', 'fulfilled', 'abandoned', 'superseded')),

    fulfillment_event_id INTEGER,
    fulfillment_evidence TEXT,
    distance_to_fulfillment INTEGER,
    confidence REAL DEFAULT 0.0,

    session_id TEXT,
    conversation_id TEXT,

    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    fulfilled_at TEXT,

    FOREIGN KEY (guidance_event_id) REFERENCES routing_events(id),
    FOREIGN KEY (fulfillment_event_id) REFERENCES routing_events(id)
);

CREATE INDEX IF NOT EXISTS idx_guidance_fulfillment_status ON guidance_fulfillment(fulfillment_status);
CREATE INDEX IF NOT EXISTS idx_guidance_fulfillment_session ON guidance_fulfillment(session_id);
CREATE INDEX IF NOT EXISTS idx_guidance_fulfillment_action ON guidance_fulfillment(action_type);
`

// DefaultPath returns the database path for a project root, or the
// user-level fallback when projectRoot is empty.
func DefaultPath(projectRoot string) string {
	if projectRoot != "" {
		return filepath.Join(projectRoot, ".pongogo", "pongogo.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pongogo", "pongogo.db")
}

// Database is the unified store for all Pongogo routing data.
type Database struct {
	path string
	db   *sql.DB
}

// Open ensures the containing directory exists, applies the full DDL
// idempotently, and records the schema version.
func Open(path string) (*Database, error) {
	timer := logging.StartTimer(logging.CategoryDB, "db.Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{path: path, db: conn}
	if err := d.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) ensureSchema() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	_, err := d.db.Exec(
		"INSERT OR REPLACE INTO schema_info (key, value) VALUES (?, ?)",
		"schema_version", SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string { return d.path }

// SchemaVersion reads the stored schema version string.
func (d *Database) SchemaVersion() (string, error) {
	var version string
	err := d.db.QueryRow(
		"SELECT value FROM schema_info WHERE key = ?", "schema_version",
	).Scan(&version)
	if err == sql.ErrNoRows {
		return "unknown", nil
	}
	if err != nil {
		return "", err
	}
	return version, nil
}

// withTx runs fn inside a transaction that commits on nil return and rolls
// back on error. All write paths go through here.
func (d *Database) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Stats reports row counts and file size for diagnostics.
func (d *Database) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"schema_version": "unknown",
		"database_path":  d.path,
	}
	if v, err := d.SchemaVersion(); err == nil {
		stats["schema_version"] = v
	}

	tables := []string{
		"routing_events",
		"routing_triggers",
		"artifact_discovered",
		"artifact_implemented",
		"observation_discovered",
		"observation_implemented",
	}
	for _, table := range tables {
		var count int
		if err := d.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err == nil {
			stats[table+"_count"] = count
		}
	}

	if info, err := os.Stat(d.path); err == nil {
		stats["database_size_bytes"] = info.Size()
	}
	return stats
}
