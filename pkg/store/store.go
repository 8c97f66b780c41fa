// Package store manages all SQLite persistence for chronicle.
//
// The store is a key/value property store keyed by (entity id, category,
// key) with JSON-encoded values, plus two small fact tables: named boolean
// flags and quest stages. Everything the engine mutates at runtime (clock
// position, ledger state, the session pool, commitment windows) lives in
// properties so that it survives a save/load cycle of the host game.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/daviddao/chronicle/pkg/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a required record has never been written.
var ErrNotFound = errors.New("not found")

// Clock records live under this entity and category.
const (
	ClockEntity     = "clock"
	ClockCategory   = "time"
	TimeSettingsKey = "timeSettings"
	TimeDataKey     = "timeData"
)

const schemaVersion = 1

// Store manages all SQLite operations with WAL mode.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		entity_id  TEXT NOT NULL,
		category   TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (entity_id, category, key)
	);
	CREATE INDEX IF NOT EXISTS idx_properties_category ON properties(category, entity_id);

	CREATE TABLE IF NOT EXISTS flags (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS quest_stages (
		quest_id TEXT PRIMARY KEY,
		stage    INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

// GetProperty decodes the stored value into dst. Returns false if the
// property has never been set.
func (s *Store) GetProperty(entityID, category, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT value FROM properties WHERE entity_id = ? AND category = ? AND key = ?`,
		entityID, category, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s/%s/%s: %w", entityID, category, key, err)
	}
	return true, nil
}

// SetProperty JSON-encodes v and stores it. Idempotent via ON CONFLICT.
func (s *Store) SetProperty(entityID, category, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s/%s: %w", entityID, category, key, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO properties (entity_id, category, key, value, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(entity_id, category, key) DO UPDATE SET
			   value = excluded.value,
			   updated_at = excluded.updated_at`,
			entityID, category, key, string(b), now,
		)
		return err
	})
}

// SetProperties JSON-encodes every value of kv and stores them in a single
// transaction, in key order. Either all values are written or none.
func (s *Store) SetProperties(entityID, category string, kv map[string]any) error {
	keys := slices.Sorted(maps.Keys(kv))
	encoded := make([]string, len(keys))
	for i, k := range keys {
		b, err := json.Marshal(kv[k])
		if err != nil {
			return fmt.Errorf("encode %s/%s/%s: %w", entityID, category, k, err)
		}
		encoded[i] = string(b)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		for i, k := range keys {
			if _, err := tx.Exec(
				`INSERT INTO properties (entity_id, category, key, value, updated_at)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(entity_id, category, key) DO UPDATE SET
				   value = excluded.value,
				   updated_at = excluded.updated_at`,
				entityID, category, k, encoded[i], now,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// DeleteProperty removes a property. Deleting a missing property is a no-op.
func (s *Store) DeleteProperty(entityID, category, key string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`DELETE FROM properties WHERE entity_id = ? AND category = ? AND key = ?`,
			entityID, category, key,
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

// LoadTime reads both clock records. Returns ErrNotFound if the clock has
// never been saved.
func (s *Store) LoadTime() (model.TimeSettings, model.TimeData, error) {
	var settings model.TimeSettings
	var data model.TimeData
	ok, err := s.GetProperty(ClockEntity, ClockCategory, TimeSettingsKey, &settings)
	if err != nil {
		return settings, data, err
	}
	if !ok {
		return settings, data, fmt.Errorf("time settings: %w", ErrNotFound)
	}
	if _, err := s.GetProperty(ClockEntity, ClockCategory, TimeDataKey, &data); err != nil {
		return settings, data, err
	}
	return settings, data, nil
}

// SaveTimeSettings writes the static clock configuration.
func (s *Store) SaveTimeSettings(settings model.TimeSettings) error {
	return s.SetProperty(ClockEntity, ClockCategory, TimeSettingsKey, settings)
}

// SaveTimeData writes the clock position.
func (s *Store) SaveTimeData(data model.TimeData) error {
	return s.SetProperty(ClockEntity, ClockCategory, TimeDataKey, data)
}

// ---------------------------------------------------------------------------
// Quest stages
// ---------------------------------------------------------------------------

// SetQuestStage records the stage a quest has reached.
func (s *Store) SetQuestStage(questID string, stage int) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO quest_stages (quest_id, stage) VALUES (?, ?)
			 ON CONFLICT(quest_id) DO UPDATE SET stage = excluded.stage`,
			questID, stage,
		)
		return err
	})
}

// QuestStage returns the stage a quest has reached (0 if never started).
func (s *Store) QuestStage(questID string) (int, error) {
	var stage int
	err := s.db.QueryRow(`SELECT stage FROM quest_stages WHERE quest_id = ?`, questID).Scan(&stage)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return stage, err
}
