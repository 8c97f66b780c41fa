// iface.go defines the interfaces the engine depends on.
//
// Ledgers and the registry only need PropertyStore, so they can run on any
// key/value backend. The CLI depends on StoreInterface; *Store satisfies both.
package store

import "github.com/daviddao/chronicle/pkg/model"

// PropertyStore is a persisted key/value store keyed by entity id and
// category. Values are encoded by the implementation.
type PropertyStore interface {
	// GetProperty decodes the stored value into dst and reports whether it existed.
	GetProperty(entityID, category, key string, dst any) (bool, error)

	// SetProperty stores v, replacing any previous value.
	SetProperty(entityID, category, key string, v any) error

	// DeleteProperty removes a value. Missing values are not an error.
	DeleteProperty(entityID, category, key string) error

	// SetProperties stores every value of kv under entityID and category in
	// one transaction.
	SetProperties(entityID, category string, kv map[string]any) error
}

// StoreInterface defines the full set of store operations.
type StoreInterface interface {
	PropertyStore

	// Close closes the database connection.
	Close() error

	// --- Clock ---

	// LoadTime reads the clock records; ErrNotFound before the first save.
	LoadTime() (model.TimeSettings, model.TimeData, error)

	// SaveTimeSettings writes the static clock configuration.
	SaveTimeSettings(settings model.TimeSettings) error

	// SaveTimeData writes the clock position.
	SaveTimeData(data model.TimeData) error

	// --- Flags ---

	// SetFlag stores a named flag.
	SetFlag(name string, value bool) error

	// DeleteFlag removes a named flag.
	DeleteFlag(name string) error

	// Flag returns a stored flag (false if unset).
	Flag(name string) (bool, error)

	// ListFlags returns all stored flags ordered by name.
	ListFlags() ([]FlagEntry, error)

	// ResolveFlag answers a named-flag lookup, including quest stage facts.
	ResolveFlag(name string) bool

	// --- Quests ---

	// SetQuestStage records the stage a quest has reached.
	SetQuestStage(questID string, stage int) error

	// QuestStage returns the stage a quest has reached (0 if never started).
	QuestStage(questID string) (int, error)
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)
