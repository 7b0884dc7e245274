package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
	"github.com/leapstack-labs/leapconf/pkg/resource"
)

// SQLiteStore stores effective configs in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// A nil logger discards log output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// every connection to :memory: is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state store", "path", path)
	return nil
}

// OpenDB uses an existing connection instead of opening one.
func (s *SQLiteStore) OpenDB(db *sql.DB) {
	s.db = db
	s.path = ""
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginInvocation records the start of a resolution batch.
func (s *SQLiteStore) BeginInvocation(project string) (*Invocation, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	inv := &Invocation{
		ID:        uuid.New().String(),
		Project:   project,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO invocations (id, project, started_at) VALUES (?, ?, ?)`,
		inv.ID, inv.Project, inv.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation: %w", err)
	}

	s.logger.Debug("began invocation", "id", inv.ID, "project", project)
	return inv, nil
}

// SaveConfig stores r's effective config under invocationID and reports
// whether it differs from the previously stored one. A resource seen for the
// first time counts as changed.
func (s *SQLiteStore) SaveConfig(invocationID string, r resource.Resource) (changed bool, err error) {
	if s.db == nil {
		return false, ErrNotOpen
	}
	n := r.Base()
	if n.Config == nil {
		return false, fmt.Errorf("resource %s has no config", n.UniqueID)
	}
	if n.UniqueID == "" {
		return false, fmt.Errorf("resource %q has no unique_id", n.Name)
	}

	configJSON, err := json.Marshal(nodeconfig.ToRaw(n.Config))
	if err != nil {
		return false, fmt.Errorf("failed to serialize config of %s: %w", n.UniqueID, err)
	}
	hash, err := CompareHash(n.Config)
	if err != nil {
		return false, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var previous string
	err = tx.QueryRow(`SELECT compare_hash FROM resource_configs WHERE unique_id = ?`, n.UniqueID).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		changed = true
	case err != nil:
		return false, fmt.Errorf("failed to read stored config: %w", err)
	default:
		changed = previous != hash
	}

	now := time.Now().UTC()
	_, err = tx.Exec(`
		INSERT INTO resource_configs
			(unique_id, resource_type, config_type, config_json, compare_hash, invocation_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			resource_type = excluded.resource_type,
			config_type   = excluded.config_type,
			config_json   = excluded.config_json,
			compare_hash  = excluded.compare_hash,
			invocation_id = excluded.invocation_id,
			updated_at    = excluded.updated_at`,
		n.UniqueID, string(n.ResourceType), n.Config.Type().Name, string(configJSON), hash, invocationID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save config of %s: %w", n.UniqueID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO config_history (unique_id, invocation_id, compare_hash, changed, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(unique_id, invocation_id) DO UPDATE SET
			compare_hash = excluded.compare_hash,
			changed      = excluded.changed,
			recorded_at  = excluded.recorded_at`,
		n.UniqueID, invocationID, hash, changed, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record config history of %s: %w", n.UniqueID, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit config of %s: %w", n.UniqueID, err)
	}

	s.logger.Debug("saved config", "resource", n.UniqueID, "changed", changed)
	return changed, nil
}

// GetConfig returns the stored config of a resource, or ErrNotFound.
func (s *SQLiteStore) GetConfig(uniqueID string) (*StoredConfig, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	sc := &StoredConfig{UniqueID: uniqueID}
	var kind, configJSON string
	err := s.db.QueryRow(`
		SELECT resource_type, config_type, config_json, compare_hash, invocation_id, updated_at
		FROM resource_configs WHERE unique_id = ?`,
		uniqueID,
	).Scan(&kind, &sc.ConfigType, &configJSON, &sc.CompareHash, &sc.InvocationID, &sc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: config of %s", ErrNotFound, uniqueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	sc.ResourceType = core.ResourceKind(kind)
	if err := json.Unmarshal([]byte(configJSON), &sc.Config); err != nil {
		return nil, fmt.Errorf("failed to decode stored config of %s: %w", uniqueID, err)
	}
	return sc, nil
}

// ConfigChanged reports whether r's effective config differs from the stored
// one under the compare projection. A resource with no stored config has changed.
func (s *SQLiteStore) ConfigChanged(r resource.Resource) (bool, error) {
	n := r.Base()
	if n.Config == nil {
		return false, fmt.Errorf("resource %s has no config", n.UniqueID)
	}
	stored, err := s.GetConfig(n.UniqueID)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	hash, err := CompareHash(n.Config)
	if err != nil {
		return false, err
	}
	return stored.CompareHash != hash, nil
}

// History returns the change history of a resource, oldest first.
func (s *SQLiteStore) History(uniqueID string) ([]HistoryEntry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.Query(`
		SELECT h.invocation_id, h.compare_hash, h.changed, h.recorded_at
		FROM config_history h
		JOIN invocations i ON i.id = h.invocation_id
		WHERE h.unique_id = ?
		ORDER BY i.started_at, h.recorded_at`,
		uniqueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query config history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.InvocationID, &e.CompareHash, &e.Changed, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan config history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CompareHash returns the sha256 of rec's type and compare projection.
func CompareHash(rec nodeconfig.Record) (string, error) {
	b, err := json.Marshal(map[string]any{
		"type":   rec.Type().Name,
		"config": nodeconfig.Comparable(rec),
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize config for comparison: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
