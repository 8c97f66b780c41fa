// Package ledger tracks which schedulable entities are attached to a
// container at runtime.
//
// A container starts with a fixed set of default entities. Defaults can be
// excluded (hidden) but never removed. Any other entity can be attached and
// detached, optionally with an override window that narrows when the
// attachment counts as present. Overrides and exclusions with a deadline are
// dropped by SweepExpired, which the owner calls after the clock moves to a
// new day; reads never mutate.
//
// Every mutation is written through to the property store under the
// container's id, so a ledger survives a save/load cycle.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/store"
	"github.com/daviddao/chronicle/pkg/window"
)

// ErrInvalidWindow is returned by Attach for malformed bounds. The ledger is
// left unchanged.
var ErrInvalidWindow = errors.New("invalid window")

// Property keys under Category for the owning container.
const (
	Category              = "ledger"
	KeyAdditional         = "additional_ids"
	KeyExcluded           = "excluded_ids"
	KeyActiveOverrides    = "active_overrides"
	KeyExclusionOverrides = "exclusion_overrides"
)

// AttachOptions narrows when an attachment is present. Days are 1-based;
// a zero day is dropped with a warning.
type AttachOptions struct {
	Hours   *model.HourRange
	FromDay *int
	ToDay   *int
}

// DetachOptions delays a detach until ToDay.
type DetachOptions struct {
	ToDay *int
}

// State is the persisted part of a ledger. ExclusionOverrides holds the
// deadlines of delayed detaches, for defaults and runtime attachments alike.
type State struct {
	AdditionalIDs      []string                  `json:"additional_ids"`
	ExcludedIDs        []string                  `json:"excluded_ids"`
	ActiveOverrides    map[string]model.Override `json:"active_overrides"`
	ExclusionOverrides map[string]model.Override `json:"exclusion_overrides"`
}

// WindowLookup finds the window spec of an attached entity.
type WindowLookup interface {
	EntityWindow(id string) (model.WindowSpec, bool)
}

// Entry is one visible attachment.
type Entry struct {
	ID       string `json:"id"`
	Disabled bool   `json:"disabled"`
	Default  bool   `json:"default"`
}

// SweepResult lists what a sweep changed.
type SweepResult struct {
	Detached []string `json:"detached,omitempty"`
	Restored []string `json:"restored,omitempty"`
}

// Ledger is the attachment record of one container. Not goroutine-safe.
type Ledger struct {
	containerID string
	defaults    []string
	state       State
	ps          store.PropertyStore
	log         *slog.Logger
}

// New returns an empty ledger that is not persisted.
func New(c model.Container, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		containerID: c.ID,
		defaults:    slices.Clone(c.Defaults),
		state:       emptyState(),
		log:         log.With("container", c.ID),
	}
}

// Load reads the ledger of c from ps. Missing keys start empty.
func Load(ps store.PropertyStore, c model.Container, log *slog.Logger) (*Ledger, error) {
	l := New(c, log)
	l.ps = ps
	for key, dst := range map[string]any{
		KeyAdditional:         &l.state.AdditionalIDs,
		KeyExcluded:           &l.state.ExcludedIDs,
		KeyActiveOverrides:    &l.state.ActiveOverrides,
		KeyExclusionOverrides: &l.state.ExclusionOverrides,
	} {
		if _, err := ps.GetProperty(c.ID, Category, key, dst); err != nil {
			return nil, fmt.Errorf("load ledger %s: %w", c.ID, err)
		}
	}
	if l.state.ActiveOverrides == nil {
		l.state.ActiveOverrides = map[string]model.Override{}
	}
	if l.state.ExclusionOverrides == nil {
		l.state.ExclusionOverrides = map[string]model.Override{}
	}
	return l, nil
}

func emptyState() State {
	return State{
		ActiveOverrides:    map[string]model.Override{},
		ExclusionOverrides: map[string]model.Override{},
	}
}

// ContainerID returns the owning container's id.
func (l *Ledger) ContainerID() string { return l.containerID }

// State returns a copy of the ledger state.
func (l *Ledger) State() State {
	s := State{
		AdditionalIDs:      slices.Clone(l.state.AdditionalIDs),
		ExcludedIDs:        slices.Clone(l.state.ExcludedIDs),
		ActiveOverrides:    make(map[string]model.Override, len(l.state.ActiveOverrides)),
		ExclusionOverrides: make(map[string]model.Override, len(l.state.ExclusionOverrides)),
	}
	for k, v := range l.state.ActiveOverrides {
		s.ActiveOverrides[k] = v
	}
	for k, v := range l.state.ExclusionOverrides {
		s.ExclusionOverrides[k] = v
	}
	return s
}

// IsDefault reports whether id is one of the container's defaults.
func (l *Ledger) IsDefault(id string) bool { return slices.Contains(l.defaults, id) }

// IsAdditional reports whether id was attached at runtime.
func (l *Ledger) IsAdditional(id string) bool { return slices.Contains(l.state.AdditionalIDs, id) }

// IsExcluded reports whether the default id is currently suppressed.
func (l *Ledger) IsExcluded(id string) bool { return slices.Contains(l.state.ExcludedIDs, id) }

// Override returns the active override recorded for an attached id.
func (l *Ledger) Override(id string) (model.Override, bool) {
	o, ok := l.state.ActiveOverrides[id]
	return o, ok
}

// Attach adds id to the container. Re-attaching an attached id with options
// replaces its override; without options it is a no-op. Defaults are left
// alone.
func (l *Ledger) Attach(id string, opts AttachOptions) error {
	if h := opts.Hours; h != nil && h.From >= h.To {
		return fmt.Errorf("attach %s: hours %d-%d: from must be before to: %w", id, h.From, h.To, ErrInvalidWindow)
	}
	fromDay := l.dropZeroDay(id, "from_day", opts.FromDay)
	toDay := l.dropZeroDay(id, "to_day", opts.ToDay)
	if fromDay != nil && toDay != nil && *fromDay >= *toDay {
		return fmt.Errorf("attach %s: days %d-%d: from must be before to: %w", id, *fromDay, *toDay, ErrInvalidWindow)
	}

	o := model.Override{FromDay: fromDay, ToDay: toDay}
	if opts.Hours != nil {
		o.FromHour = model.Int(opts.Hours.From)
		o.ToHour = model.Int(opts.Hours.To)
	}

	if l.IsDefault(id) {
		l.log.Warn("attach ignored", "entity", id, "reason", "already a default")
		return nil
	}
	if l.IsAdditional(id) {
		if o.IsZero() {
			l.log.Warn("attach ignored", "entity", id, "reason", "already attached")
			return nil
		}
		l.state.ActiveOverrides[id] = o
		return l.save()
	}

	l.state.AdditionalIDs = append(l.state.AdditionalIDs, id)
	if !o.IsZero() {
		l.state.ActiveOverrides[id] = o
	}
	return l.save()
}

// Detach removes id from the container. With ToDay an attached id stays
// until that day and is dropped by the next sweep; the deadline is kept
// apart from the attachment's own override, so whichever comes first
// applies. A default is suppressed until that day. Without ToDay an
// attached id is removed at once and a default is suppressed for good.
func (l *Ledger) Detach(id string, opts DetachOptions) error {
	toDay := l.dropZeroDay(id, "to_day", opts.ToDay)

	switch {
	case l.IsAdditional(id):
		if toDay != nil {
			l.state.ExclusionOverrides[id] = model.Override{ToDay: toDay}
			return l.save()
		}
		l.removeAdditional(id)
		return l.save()

	case l.IsDefault(id):
		if toDay != nil {
			l.state.ExclusionOverrides[id] = model.Override{ToDay: toDay}
		} else {
			if l.IsExcluded(id) && l.state.ExclusionOverrides[id].ToDay == nil {
				l.log.Warn("detach ignored", "entity", id, "reason", "already excluded")
				return nil
			}
			delete(l.state.ExclusionOverrides, id)
		}
		if !l.IsExcluded(id) {
			l.state.ExcludedIDs = append(l.state.ExcludedIDs, id)
		}
		return l.save()
	}

	l.log.Warn("detach ignored", "entity", id, "reason", "not attached")
	return nil
}

// SweepExpired drops attachments whose override or pending detach deadline
// has been reached by day and restores defaults whose exclusion deadline has been reached.
func (l *Ledger) SweepExpired(day int) (SweepResult, error) {
	var res SweepResult
	for _, id := range slices.Clone(l.state.AdditionalIDs) {
		if deadlineReached(l.state.ActiveOverrides, id, day) || deadlineReached(l.state.ExclusionOverrides, id, day) {
			l.removeAdditional(id)
			res.Detached = append(res.Detached, id)
		}
	}
	for _, id := range slices.Clone(l.state.ExcludedIDs) {
		if deadlineReached(l.state.ExclusionOverrides, id, day) {
			delete(l.state.ExclusionOverrides, id)
			l.state.ExcludedIDs = slices.DeleteFunc(l.state.ExcludedIDs, func(s string) bool { return s == id })
			res.Restored = append(res.Restored, id)
		}
	}
	if len(res.Detached) == 0 && len(res.Restored) == 0 {
		return res, nil
	}
	l.log.Debug("ledger swept", "day", day, "detached", res.Detached, "restored", res.Restored)
	return res, l.save()
}

// Attached returns the attached ids regardless of windows: defaults that
// are not excluded, then runtime attachments in attach order.
func (l *Ledger) Attached() []string {
	ids := make([]string, 0, len(l.defaults)+len(l.state.AdditionalIDs))
	for _, id := range l.defaults {
		if !l.IsExcluded(id) {
			ids = append(ids, id)
		}
	}
	return append(ids, l.state.AdditionalIDs...)
}

// Visible returns the attached entities whose own window, narrowed by any
// override, admits the evaluator's current time. Ids missing from lookup
// are reported and skipped.
func (l *Ledger) Visible(eval *window.Evaluator, lookup WindowLookup) []Entry {
	var out []Entry
	for _, id := range l.Attached() {
		spec, ok := lookup.EntityWindow(id)
		if !ok {
			l.log.Warn("attached entity not found", "entity", id)
			continue
		}
		var o *model.Override
		if ov, ok := l.state.ActiveOverrides[id]; ok {
			o = &ov
		}
		if !eval.VisibleWithin(spec, o) {
			continue
		}
		out = append(out, Entry{ID: id, Disabled: eval.Disabled(spec), Default: l.IsDefault(id)})
	}
	return out
}

// VisibleIDs returns just the ids of Visible.
func (l *Ledger) VisibleIDs(eval *window.Evaluator, lookup WindowLookup) []string {
	entries := l.Visible(eval, lookup)
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func (l *Ledger) removeAdditional(id string) {
	l.state.AdditionalIDs = slices.DeleteFunc(l.state.AdditionalIDs, func(s string) bool { return s == id })
	delete(l.state.ActiveOverrides, id)
	delete(l.state.ExclusionOverrides, id)
}

func deadlineReached(overrides map[string]model.Override, id string, day int) bool {
	o, ok := overrides[id]
	return ok && window.IsExpired(o.ToDay, day)
}

func (l *Ledger) dropZeroDay(id, field string, d *int) *int {
	if d != nil && *d == 0 {
		l.log.Warn("day bound ignored", "entity", id, "field", field, "reason", "days are 1-based")
		return nil
	}
	return d
}

func (l *Ledger) save() error {
	if l.ps == nil {
		return nil
	}
	err := l.ps.SetProperties(l.containerID, Category, map[string]any{
		KeyAdditional:         l.state.AdditionalIDs,
		KeyExcluded:           l.state.ExcludedIDs,
		KeyActiveOverrides:    l.state.ActiveOverrides,
		KeyExclusionOverrides: l.state.ExclusionOverrides,
	})
	if err != nil {
		return fmt.Errorf("save ledger %s: %w", l.containerID, err)
	}
	return nil
}
