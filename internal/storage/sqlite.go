package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nikbrunner/bmtree/internal/model"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}

	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY NOT NULL,
			type TEXT NOT NULL,
			parent_id TEXT,
			order_key TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			visited_at TEXT,
			deleted_at TEXT,
			deleted_by TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_parent_key ON nodes(parent_id, order_key);
		CREATE INDEX IF NOT EXISTS idx_nodes_deleted ON nodes(deleted_at) WHERE deleted_at IS NOT NULL;

		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds presentation attributes and the settings table.
func (s *SQLiteStorage) migrateV2() error {
	migration := `
		ALTER TABLE nodes ADD COLUMN color TEXT NOT NULL DEFAULT '';
		ALTER TABLE nodes ADD COLUMN cover TEXT NOT NULL DEFAULT '';
		ALTER TABLE nodes ADD COLUMN icon TEXT NOT NULL DEFAULT '';
		ALTER TABLE nodes ADD COLUMN notes TEXT NOT NULL DEFAULT '';
		ALTER TABLE nodes ADD COLUMN favorite INTEGER NOT NULL DEFAULT 0;
		ALTER TABLE nodes ADD COLUMN read_later INTEGER NOT NULL DEFAULT 0;

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);

		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

// Load reads the snapshot from the SQLite database.
// Returns ErrNoSnapshot if nothing has been saved yet.
func (s *SQLiteStorage) Load() (*model.Snapshot, error) {
	var versionStr string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'snapshot_version'").Scan(&versionStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, fmt.Errorf("snapshot version %q: %w", versionStr, err)
	}

	snap := &model.Snapshot{
		Version:  version,
		Nodes:    map[string]model.Node{},
		Settings: map[string]any{},
	}

	if err := s.loadNodes(snap); err != nil {
		return nil, err
	}
	if err := s.loadSettings(snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *SQLiteStorage) loadNodes(snap *model.Snapshot) error {
	rows, err := s.db.Query(`
		SELECT id, type, parent_id, order_key, title, url, color, cover, icon, notes,
			tags, favorite, read_later, created_at, updated_at, visited_at, deleted_at, deleted_by
		FROM nodes
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var n model.Node
		var nodeType string
		var parentID sql.NullString
		var tagsJSON string
		var favorite, readLater int
		var createdAtStr, updatedAtStr string
		var visitedAtStr, deletedAtStr sql.NullString

		if err := rows.Scan(
			&n.ID, &nodeType, &parentID, &n.OrderKey, &n.Title, &n.URL,
			&n.Color, &n.Cover, &n.Icon, &n.Notes,
			&tagsJSON, &favorite, &readLater,
			&createdAtStr, &updatedAtStr, &visitedAtStr, &deletedAtStr, &n.DeletedBy,
		); err != nil {
			return err
		}

		n.Type = model.NodeType(nodeType)
		if parentID.Valid {
			n.ParentID = &parentID.String
		}

		if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil || n.Tags == nil {
			n.Tags = []string{}
		}
		n.Favorite = favorite == 1
		n.ReadLater = readLater == 1

		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		n.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
		n.VisitedAt = parseNullTime(visitedAtStr)
		n.DeletedAt = parseNullTime(deletedAtStr)

		snap.Nodes[n.ID] = n
	}

	return rows.Err()
}

func (s *SQLiteStorage) loadSettings(snap *model.Snapshot) error {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		snap.Settings[key] = value
	}

	return rows.Err()
}

// Save writes the snapshot to the SQLite database.
// Uses a transaction for atomicity - all or nothing.
func (s *SQLiteStorage) Save(snap *model.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return quotaError(sqliteQuotaError(err))
	}
	defer tx.Rollback()

	if err := saveTx(tx, snap); err != nil {
		return sqliteQuotaError(err)
	}

	return sqliteQuotaError(tx.Commit())
}

func saveTx(tx *sql.Tx, snap *model.Snapshot) error {
	// Clear existing data
	for _, stmt := range []string{"DELETE FROM nodes", "DELETE FROM settings"} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (id, type, parent_id, order_key, title, url, color, cover, icon, notes,
			tags, favorite, read_later, created_at, updated_at, visited_at, deleted_at, deleted_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	for _, n := range snap.Nodes {
		tagsJSON, _ := json.Marshal(n.Tags)
		if n.Tags == nil {
			tagsJSON = []byte("[]")
		}

		if _, err := nodeStmt.Exec(
			n.ID, string(n.Type), n.ParentID, n.OrderKey, n.Title, n.URL,
			n.Color, n.Cover, n.Icon, n.Notes,
			string(tagsJSON), boolInt(n.Favorite), boolInt(n.ReadLater),
			n.CreatedAt.Format(time.RFC3339Nano), n.UpdatedAt.Format(time.RFC3339Nano),
			formatNullTime(n.VisitedAt), formatNullTime(n.DeletedAt), n.DeletedBy,
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	for key, value := range snap.Settings {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		if _, err := tx.Exec("INSERT INTO settings (key, value) VALUES (?, ?)", key, string(raw)); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES ('snapshot_version', ?)",
		strconv.Itoa(snap.Version),
	)
	return err
}

// sqliteQuotaError tags SQLITE_FULL with ErrQuotaExceeded.
func sqliteQuotaError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339Nano)
	return &v
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/bm/bookmarks.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.db"), nil
}
