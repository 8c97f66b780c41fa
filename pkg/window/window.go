// Package window decides whether a schedulable entity is visible at the
// clock's current time.
//
// An entity is hidden when any structural condition fails: its first day has
// not arrived, the current hour is outside its hour range, or its deadline
// has passed. Only when all of those hold is the entity's own hidden toggle
// consulted, so the toggle can hide a scheduled entity but never reveal one
// that is out of its window.
//
// Disabled is independent of time. Callers decide whether a disabled entity
// is greyed out or left out entirely.
package window

import (
	"github.com/daviddao/chronicle/pkg/clock"
	"github.com/daviddao/chronicle/pkg/model"
)

// FlagResolver looks up named game-state flags.
type FlagResolver interface {
	ResolveFlag(name string) bool
}

// FlagFunc adapts a function to FlagResolver.
type FlagFunc func(name string) bool

// ResolveFlag implements FlagResolver.
func (f FlagFunc) ResolveFlag(name string) bool { return f(name) }

// Phase is where an entity sits on its day timeline.
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseActive  Phase = "active"
	PhaseExpired Phase = "expired"
)

// ResolveBoolOrFlag returns a literal flag's value, or looks a reference up
// through flags. A nil resolver treats every reference as false.
func ResolveBoolOrFlag(f model.Flag, flags FlagResolver) bool {
	if !f.IsRef() {
		return f.Value()
	}
	if flags == nil {
		return false
	}
	return flags.ResolveFlag(f.Name())
}

// WithinDayWindow reports whether fromDay is unset or has been reached.
func WithinDayWindow(fromDay *int, currentDay int) bool {
	return fromDay == nil || currentDay >= *fromDay
}

// IsExpired reports whether toDay is set and has been reached.
func IsExpired(toDay *int, currentDay int) bool {
	return toDay != nil && currentDay >= *toDay
}

// Evaluator evaluates window specs against a clock and a flag resolver.
type Evaluator struct {
	clock *clock.Clock
	flags FlagResolver
}

// New returns an evaluator reading time from c and flags from flags.
func New(c *clock.Clock, flags FlagResolver) *Evaluator {
	return &Evaluator{clock: c, flags: flags}
}

// Clock returns the clock the evaluator reads.
func (e *Evaluator) Clock() *clock.Clock { return e.clock }

// Flags returns the flag resolver.
func (e *Evaluator) Flags() FlagResolver { return e.flags }

// At returns an evaluator reading the same flags at (day, hour).
func (e *Evaluator) At(day, hour int) *Evaluator {
	return &Evaluator{clock: e.clock.At(day, hour), flags: e.flags}
}

// WithinHourWindow reports whether the current hour lies in [from, to).
// With both bounds unset it is always true. A missing from defaults to the
// clock's MinHour and a missing to defaults to MaxHour+1.
func (e *Evaluator) WithinHourWindow(from, to *int) bool {
	if from == nil && to == nil {
		return true
	}
	f := e.clock.MinHour()
	if from != nil {
		f = *from
	}
	t := e.clock.MaxHour() + 1
	if to != nil {
		t = *to
	}
	return e.clock.IsBetween(f, t)
}

// Hidden reports whether spec is hidden at the current time.
func (e *Evaluator) Hidden(spec model.WindowSpec) bool {
	day := e.clock.Day()
	return !WithinDayWindow(spec.FromDay, day) ||
		!e.WithinHourWindow(spec.FromHour, spec.ToHour) ||
		IsExpired(spec.ToDay, day) ||
		ResolveBoolOrFlag(spec.Hidden, e.flags)
}

// Visible is the negation of Hidden.
func (e *Evaluator) Visible(spec model.WindowSpec) bool { return !e.Hidden(spec) }

// Disabled reports whether spec is disabled.
func (e *Evaluator) Disabled(spec model.WindowSpec) bool {
	return ResolveBoolOrFlag(spec.Disabled, e.flags)
}

// VisibleWithin reports whether spec is visible and, when o is non-nil,
// the override window also admits the current time. The override can only
// narrow the entity's own window.
func (e *Evaluator) VisibleWithin(spec model.WindowSpec, o *model.Override) bool {
	if e.Hidden(spec) {
		return false
	}
	return o == nil || !e.Hidden(o.Window())
}

// Phase places spec on its day timeline: pending before FromDay, expired
// from ToDay onward, active otherwise. Hours and toggles are not consulted.
func (e *Evaluator) Phase(spec model.WindowSpec) Phase {
	day := e.clock.Day()
	switch {
	case IsExpired(spec.ToDay, day):
		return PhaseExpired
	case !WithinDayWindow(spec.FromDay, day):
		return PhasePending
	default:
		return PhaseActive
	}
}
