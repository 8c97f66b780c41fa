package store

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// FlagEntry is one stored named flag.
type FlagEntry struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// QuestFlagPrefix marks flag names of the form quest:<id>:<stage>, which
// resolve to "quest <id> has reached at least <stage>".
const QuestFlagPrefix = "quest:"

// SetFlag stores a named flag.
func (s *Store) SetFlag(name string, value bool) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO flags (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, boolToInt(value),
		)
		return err
	})
}

// DeleteFlag removes a named flag, making it resolve false.
func (s *Store) DeleteFlag(name string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`DELETE FROM flags WHERE name = ?`, name)
		return err
	})
}

// Flag returns a stored flag's value (false if unset).
func (s *Store) Flag(name string) (bool, error) {
	var v int
	err := s.db.QueryRow(`SELECT value FROM flags WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ListFlags returns all stored flags ordered by name.
func (s *Store) ListFlags() ([]FlagEntry, error) {
	rows, err := s.db.Query(`SELECT name, value FROM flags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []FlagEntry
	for rows.Next() {
		var f FlagEntry
		var v int
		if err := rows.Scan(&f.Name, &v); err != nil {
			return nil, err
		}
		f.Value = v != 0
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// ResolveFlag answers a named-flag lookup. A leading "!" negates the rest
// of the name; quest:<id>:<stage> compares the recorded quest stage. Read
// errors and malformed quest references resolve false.
func (s *Store) ResolveFlag(name string) bool {
	if rest, ok := strings.CutPrefix(name, "!"); ok {
		return !s.ResolveFlag(rest)
	}
	if rest, ok := strings.CutPrefix(name, QuestFlagPrefix); ok {
		i := strings.LastIndex(rest, ":")
		if i <= 0 {
			return false
		}
		want, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return false
		}
		stage, err := s.QuestStage(rest[:i])
		return err == nil && stage >= want
	}
	v, err := s.Flag(name)
	return err == nil && v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
