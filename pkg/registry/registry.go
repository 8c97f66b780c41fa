// Package registry maps ids to the entities the engine schedules.
//
// A Registry is owned by the host application and passed to whatever needs
// lookups, so several independent game sessions can share one process.
//
// Commitments live in two pools. The fixed pool is filled at startup and is
// append-only. The session pool is an ordered, persisted list that grows and
// shrinks while the game runs; commitments created for it have their
// definitions persisted too. Any commitment's window can be changed at
// runtime through SetCommitmentWindow; the stored window replaces the
// registered one on every lookup.
package registry

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/daviddao/chronicle/pkg/ledger"
	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/store"
)

// Property locations used by the registry.
const (
	CommitmentCategory = "commitment"
	KeyDefinition      = "definition"
	KeyWindow          = "window"

	SessionEntity   = "session"
	SessionCategory = "pool"
	KeySessionPool  = "commitment_ids"
)

type commitmentEntry struct {
	base model.Commitment
	pool model.Pool
}

// Registry is an explicit id→entity registry. Not goroutine-safe.
type Registry struct {
	ps  store.PropertyStore
	log *slog.Logger

	activities     map[string]model.Activity
	activityOrder  []string
	containers     map[string]model.Container
	containerOrder []string
	commitments    map[string]commitmentEntry
	fixed          []string
	session        []string
	ledgers        map[string]*ledger.Ledger
}

// New returns an empty registry persisting through ps.
func New(ps store.PropertyStore, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		ps:          ps,
		log:         log,
		activities:  map[string]model.Activity{},
		containers:  map[string]model.Container{},
		commitments: map[string]commitmentEntry{},
		ledgers:     map[string]*ledger.Ledger{},
	}
}

// LoadSession restores the session pool and the definitions of its
// commitments. Call it after the fixed pool has been registered. Pool ids
// without a definition are reported and dropped.
func (r *Registry) LoadSession() error {
	var ids []string
	if _, err := r.ps.GetProperty(SessionEntity, SessionCategory, KeySessionPool, &ids); err != nil {
		return fmt.Errorf("load session pool: %w", err)
	}
	r.session = r.session[:0]
	for _, id := range ids {
		if e, ok := r.commitments[id]; ok && e.pool == model.PoolFixed {
			r.log.Warn("session pool entry shadows fixed commitment", "commitment", id)
			continue
		}
		var c model.Commitment
		ok, err := r.ps.GetProperty(id, CommitmentCategory, KeyDefinition, &c)
		if err != nil {
			return fmt.Errorf("load commitment %s: %w", id, err)
		}
		if !ok {
			r.log.Warn("session commitment not found", "commitment", id)
			continue
		}
		r.commitments[id] = commitmentEntry{base: c, pool: model.PoolSession}
		r.session = append(r.session, id)
	}
	return nil
}

// NewCommitmentID returns a fresh id for a session commitment.
func NewCommitmentID() string { return "c-" + uuid.NewString() }

// ---------------------------------------------------------------------------
// Activities and containers
// ---------------------------------------------------------------------------

// AddActivity registers an activity.
func (r *Registry) AddActivity(a model.Activity) error {
	if a.ID == "" {
		return fmt.Errorf("add activity: empty id")
	}
	if _, ok := r.activities[a.ID]; ok {
		return fmt.Errorf("add activity %s: already registered", a.ID)
	}
	r.activities[a.ID] = a
	r.activityOrder = append(r.activityOrder, a.ID)
	return nil
}

// Activity looks up an activity.
func (r *Registry) Activity(id string) (model.Activity, bool) {
	a, ok := r.activities[id]
	return a, ok
}

// Activities returns all activities in registration order.
func (r *Registry) Activities() []model.Activity {
	out := make([]model.Activity, len(r.activityOrder))
	for i, id := range r.activityOrder {
		out[i] = r.activities[id]
	}
	return out
}

// AddContainer registers a container.
func (r *Registry) AddContainer(c model.Container) error {
	if c.ID == "" {
		return fmt.Errorf("add container: empty id")
	}
	if _, ok := r.containers[c.ID]; ok {
		return fmt.Errorf("add container %s: already registered", c.ID)
	}
	r.containers[c.ID] = c
	r.containerOrder = append(r.containerOrder, c.ID)
	return nil
}

// Container looks up a container.
func (r *Registry) Container(id string) (model.Container, bool) {
	c, ok := r.containers[id]
	return c, ok
}

// Containers returns all containers in registration order.
func (r *Registry) Containers() []model.Container {
	out := make([]model.Container, len(r.containerOrder))
	for i, id := range r.containerOrder {
		out[i] = r.containers[id]
	}
	return out
}

// Ledger returns the attachment ledger of a container, loading it from the
// store on first use.
func (r *Registry) Ledger(containerID string) (*ledger.Ledger, error) {
	if l, ok := r.ledgers[containerID]; ok {
		return l, nil
	}
	c, ok := r.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("ledger: unknown container %q", containerID)
	}
	l, err := ledger.Load(r.ps, c, r.log)
	if err != nil {
		return nil, err
	}
	r.ledgers[containerID] = l
	return l, nil
}

// SweepAll runs SweepExpired on every container's ledger.
func (r *Registry) SweepAll(day int) (map[string]ledger.SweepResult, error) {
	out := map[string]ledger.SweepResult{}
	for _, id := range r.containerOrder {
		l, err := r.Ledger(id)
		if err != nil {
			return out, err
		}
		res, err := l.SweepExpired(day)
		if err != nil {
			return out, err
		}
		if len(res.Detached) > 0 || len(res.Restored) > 0 {
			out[id] = res
		}
	}
	return out, nil
}

// EntityWindow returns the window of an activity or commitment. It lets
// ledgers look up whatever is attached to them.
func (r *Registry) EntityWindow(id string) (model.WindowSpec, bool) {
	if a, ok := r.activities[id]; ok {
		return a.Window, true
	}
	if c, ok := r.Commitment(id); ok {
		return c.Window, true
	}
	return model.WindowSpec{}, false
}

// ---------------------------------------------------------------------------
// Commitments
// ---------------------------------------------------------------------------

// RegisterCommitment appends c to the fixed pool.
func (r *Registry) RegisterCommitment(c model.Commitment) error {
	if c.ID == "" {
		return fmt.Errorf("register commitment: empty id")
	}
	if _, ok := r.commitments[c.ID]; ok {
		return fmt.Errorf("register commitment %s: already registered", c.ID)
	}
	c.Actors = slices.Clone(c.Actors)
	r.commitments[c.ID] = commitmentEntry{base: c, pool: model.PoolFixed}
	r.fixed = append(r.fixed, c.ID)
	return nil
}

// AddSessionCommitment appends c to the session pool and persists it. An
// empty id is replaced by a generated one; the id used is returned. Adding
// an id already in the session pool is reported and ignored.
func (r *Registry) AddSessionCommitment(c model.Commitment) (string, error) {
	if c.ID == "" {
		c.ID = NewCommitmentID()
	}
	if e, ok := r.commitments[c.ID]; ok {
		if e.pool == model.PoolFixed {
			return "", fmt.Errorf("add session commitment %s: already in the fixed pool", c.ID)
		}
		r.log.Warn("session commitment already added", "commitment", c.ID)
		return c.ID, nil
	}
	if c.Mode == "" {
		c.Mode = model.ModeAutomatic
	}
	c.Actors = slices.Clone(c.Actors)
	if err := r.ps.SetProperty(c.ID, CommitmentCategory, KeyDefinition, c); err != nil {
		return "", fmt.Errorf("add session commitment %s: %w", c.ID, err)
	}
	r.commitments[c.ID] = commitmentEntry{base: c, pool: model.PoolSession}
	r.session = append(r.session, c.ID)
	if err := r.saveSession(); err != nil {
		return "", err
	}
	return c.ID, nil
}

// RemoveSessionCommitment drops id from the session pool. Unknown ids and
// fixed commitments are reported and ignored.
func (r *Registry) RemoveSessionCommitment(id string) error {
	e, ok := r.commitments[id]
	if !ok {
		r.log.Warn("remove ignored", "commitment", id, "reason", "not found")
		return nil
	}
	if e.pool == model.PoolFixed {
		r.log.Warn("remove ignored", "commitment", id, "reason", "fixed commitments cannot be removed")
		return nil
	}
	delete(r.commitments, id)
	r.session = slices.DeleteFunc(r.session, func(s string) bool { return s == id })
	if err := r.ps.DeleteProperty(id, CommitmentCategory, KeyDefinition); err != nil {
		return fmt.Errorf("remove session commitment %s: %w", id, err)
	}
	if err := r.ps.DeleteProperty(id, CommitmentCategory, KeyWindow); err != nil {
		return fmt.Errorf("remove session commitment %s: %w", id, err)
	}
	return r.saveSession()
}

// SetCommitmentWindow persists a new window for a registered commitment.
func (r *Registry) SetCommitmentWindow(id string, w model.WindowSpec) error {
	if _, ok := r.commitments[id]; !ok {
		return fmt.Errorf("set window: unknown commitment %q", id)
	}
	if w.FromDay != nil && w.ToDay != nil && *w.FromDay >= *w.ToDay {
		return fmt.Errorf("set window %s: from_day %d must be before to_day %d", id, *w.FromDay, *w.ToDay)
	}
	if err := r.ps.SetProperty(id, CommitmentCategory, KeyWindow, w); err != nil {
		return fmt.Errorf("set window %s: %w", id, err)
	}
	return nil
}

// Commitment looks up a commitment, applying any stored window.
func (r *Registry) Commitment(id string) (model.Commitment, bool) {
	e, ok := r.commitments[id]
	if !ok {
		return model.Commitment{}, false
	}
	c := e.base
	var w model.WindowSpec
	found, err := r.ps.GetProperty(id, CommitmentCategory, KeyWindow, &w)
	if err != nil {
		r.log.Warn("commitment window unreadable", "commitment", id, "err", err)
	} else if found {
		c.Window = w
	}
	return c, true
}

// Pool reports which pool a commitment belongs to.
func (r *Registry) Pool(id string) (model.Pool, bool) {
	e, ok := r.commitments[id]
	return e.pool, ok
}

// FixedPool returns fixed commitment ids in registration order.
func (r *Registry) FixedPool() []string { return slices.Clone(r.fixed) }

// SessionPool returns session commitment ids in insertion order.
func (r *Registry) SessionPool() []string { return slices.Clone(r.session) }

func (r *Registry) saveSession() error {
	if err := r.ps.SetProperty(SessionEntity, SessionCategory, KeySessionPool, r.session); err != nil {
		return fmt.Errorf("save session pool: %w", err)
	}
	return nil
}
