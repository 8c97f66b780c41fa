// Package model defines the core domain types for chronicle.
//
// Chronicle decides two things for any point in in-game time:
//
//   - Visibility: whether a schedulable entity (an activity or a commitment)
//     is currently active. Every schedulable entity carries a WindowSpec:
//     an hour range that may wrap past midnight, a first day, a deadline
//     day, and disabled/hidden toggles that are either literal booleans or
//     references to named game-state flags.
//
//   - Conflict resolution: when several commitments would place the same
//     actor somewhere at once, exactly one wins. Higher priority wins; at
//     equal priority session commitments beat fixed ones, and within a pool
//     the most recently added wins.
package model

// Int returns a pointer to v. Used to fill optional window bounds.
func Int(v int) *int { return &v }

// WindowSpec is the scheduling window shared by every schedulable entity.
// Unset bounds fall back to the clock's defaults at evaluation time.
type WindowSpec struct {
	FromHour *int `json:"from_hour,omitempty" yaml:"from_hour,omitempty"`
	ToHour   *int `json:"to_hour,omitempty" yaml:"to_hour,omitempty"`
	FromDay  *int `json:"from_day,omitempty" yaml:"from_day,omitempty"`
	ToDay    *int `json:"to_day,omitempty" yaml:"to_day,omitempty"`
	Disabled Flag `json:"disabled" yaml:"disabled,omitempty"`
	Hidden   Flag `json:"hidden" yaml:"hidden,omitempty"`
	// Priority is only meaningful for commitments.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// HourRange is an explicit [From, To) hour pair.
type HourRange struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// Override narrows when a ledger attachment is considered present. For
// exclusion overrides only ToDay is used.
type Override struct {
	FromHour *int `json:"from_hour,omitempty"`
	ToHour   *int `json:"to_hour,omitempty"`
	FromDay  *int `json:"from_day,omitempty"`
	ToDay    *int `json:"to_day,omitempty"`
}

// IsZero reports whether no bound is set.
func (o Override) IsZero() bool {
	return o.FromHour == nil && o.ToHour == nil && o.FromDay == nil && o.ToDay == nil
}

// Window returns the override as a window spec with literal false toggles.
func (o Override) Window() WindowSpec {
	return WindowSpec{FromHour: o.FromHour, ToHour: o.ToHour, FromDay: o.FromDay, ToDay: o.ToDay}
}

// ExecutionMode says how a commitment is carried out once it wins.
type ExecutionMode string

const (
	ModeAutomatic   ExecutionMode = "automatic"
	ModeInteraction ExecutionMode = "interaction"
)

// Pool identifies which commitment pool an entry belongs to.
type Pool string

const (
	PoolFixed   Pool = "fixed"
	PoolSession Pool = "session"
)

// Activity is a schedulable thing that can happen inside a container.
type Activity struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name,omitempty" yaml:"name,omitempty"`
	Window WindowSpec `json:"window" yaml:"window,omitempty"`
}

// Container is a room, location or map that activities attach to.
// Defaults are fixed at construction and can only be hidden, never removed.
type Container struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Defaults []string `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// Commitment binds a set of actors to a container during a window.
// Identity and actors are immutable; the window may change at runtime.
type Commitment struct {
	ID          string        `json:"id" yaml:"id"`
	Actors      []string      `json:"actors" yaml:"actors"`
	ContainerID string        `json:"container_id" yaml:"container"`
	Mode        ExecutionMode `json:"mode" yaml:"mode,omitempty"`
	Window      WindowSpec    `json:"window" yaml:"window,omitempty"`
}

// Priority returns the commitment's conflict priority.
func (c Commitment) Priority() int { return c.Window.Priority }

// Assignment records which commitment an actor is bound to.
type Assignment struct {
	Actor        string        `json:"actor"`
	CommitmentID string        `json:"commitment_id"`
	ContainerID  string        `json:"container_id"`
	Mode         ExecutionMode `json:"mode"`
	Priority     int           `json:"priority"`
	Pool         Pool          `json:"pool"`
}

// TimeSlot names the part of the day beginning at StartHour.
type TimeSlot struct {
	Name      string `json:"name" yaml:"name"`
	StartHour int    `json:"start_hour" yaml:"start_hour"`
}

// TimeSettings is the static clock configuration.
type TimeSettings struct {
	MinHour          int        `json:"min_hour" yaml:"min_hour"`
	MaxHour          int        `json:"max_hour" yaml:"max_hour"`
	DefaultTimeSpent int        `json:"default_time_spent" yaml:"default_time_spent"`
	WeekLength       int        `json:"week_length" yaml:"week_length"`
	WeekendStartDay  int        `json:"weekend_start_day" yaml:"weekend_start_day"`
	WeekDayNames     []string   `json:"week_day_names" yaml:"week_day_names"`
	TimeSlots        []TimeSlot `json:"time_slots" yaml:"time_slots"`
}

// TimeData is the mutable clock position.
type TimeData struct {
	CurrentDay  int `json:"current_day"`
	CurrentHour int `json:"current_hour"`
}

// DefaultTimeSettings returns a 24-hour, seven-day configuration with four
// time slots.
func DefaultTimeSettings() TimeSettings {
	return TimeSettings{
		MinHour:          0,
		MaxHour:          24,
		DefaultTimeSpent: 1,
		WeekLength:       7,
		WeekendStartDay:  5,
		WeekDayNames:     []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
		TimeSlots: []TimeSlot{
			{Name: "morning", StartHour: 5},
			{Name: "afternoon", StartHour: 12},
			{Name: "evening", StartHour: 18},
			{Name: "night", StartHour: 22},
		},
	}
}
