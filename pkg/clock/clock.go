// Package clock implements the in-game clock.
//
// Time is a (day, hour) pair. Hours run over the half-open range
// [MinHour, MaxHour); spending time past MaxHour rolls into the next day and
// the overflow is carried into the new day starting from MinHour. Days count
// up from zero and fold into weeks of WeekLength days.
//
// Hour ranges wrap: a range whose start is not below its end spans the day
// boundary, so [22, 6) is the night and [h, h) is the whole day.
//
// Note: Clock is not goroutine-safe. Game-turn processing runs on a single
// logical thread and each CLI invocation seeds a fresh Clock from the store.
package clock

import (
	"fmt"

	"github.com/daviddao/chronicle/pkg/model"
)

// Clock is the in-game clock. Not goroutine-safe; see package doc.
type Clock struct {
	settings model.TimeSettings
	day      int
	hour     int
}

// New returns a clock with the given configuration and position.
func New(settings model.TimeSettings, data model.TimeData) (*Clock, error) {
	if err := Validate(settings); err != nil {
		return nil, err
	}
	return &Clock{settings: settings, day: data.CurrentDay, hour: data.CurrentHour}, nil
}

// Validate checks the static configuration.
func Validate(s model.TimeSettings) error {
	if s.MaxHour <= s.MinHour {
		return fmt.Errorf("time settings: max_hour %d must be greater than min_hour %d", s.MaxHour, s.MinHour)
	}
	if s.WeekLength < 1 {
		return fmt.Errorf("time settings: week_length %d must be at least 1", s.WeekLength)
	}
	for i := 1; i < len(s.TimeSlots); i++ {
		if s.TimeSlots[i].StartHour < s.TimeSlots[i-1].StartHour {
			return fmt.Errorf("time settings: time slot %q starts before %q",
				s.TimeSlots[i].Name, s.TimeSlots[i-1].Name)
		}
	}
	return nil
}

// Settings returns the static configuration.
func (c *Clock) Settings() model.TimeSettings { return c.settings }

// Data returns the current position for persistence.
func (c *Clock) Data() model.TimeData {
	return model.TimeData{CurrentDay: c.day, CurrentHour: c.hour}
}

// Day returns the current day.
func (c *Clock) Day() int { return c.day }

// Hour returns the current hour.
func (c *Clock) Hour() int { return c.hour }

// MinHour returns the first hour of a day.
func (c *Clock) MinHour() int { return c.settings.MinHour }

// MaxHour returns the exclusive upper bound of a day's hours.
func (c *Clock) MaxHour() int { return c.settings.MaxHour }

// Set moves the clock to a specific position without any rollover.
func (c *Clock) Set(day, hour int) {
	c.day = day
	c.hour = hour
}

// At returns an independent clock with the same configuration positioned
// at (day, hour).
func (c *Clock) At(day, hour int) *Clock {
	return &Clock{settings: c.settings, day: day, hour: hour}
}

// AdvanceHour spends hours of in-game time and returns the resulting hour.
// Crossing MaxHour rolls into the next day, carrying the overflow. A
// negative value moves the hour back without wrapping to the previous day,
// so the hour may end up below MinHour.
func (c *Clock) AdvanceHour(spent int) int {
	h := c.hour + spent
	if h < c.settings.MaxHour {
		c.hour = h
		return c.hour
	}
	span := c.settings.MaxHour - c.settings.MinHour
	days := 0
	for h >= c.settings.MaxHour {
		h -= span
		days++
	}
	c.AdvanceDay(h, days)
	return c.hour
}

// Spend advances by the configured default time spent.
func (c *Clock) Spend() int {
	return c.AdvanceHour(c.settings.DefaultTimeSpent)
}

// AdvanceDay moves forward by days and sets the hour to newHour. Returns
// the new day.
func (c *Clock) AdvanceDay(newHour, days int) int {
	c.day += days
	c.hour = newHour
	return c.day
}

// NextDay advances one day and resets the hour to MinHour.
func (c *Clock) NextDay() int {
	return c.AdvanceDay(c.settings.MinHour, 1)
}

// IsBetween reports whether the current hour lies in [from, to). When from
// is not below to the range wraps past the day boundary; from == to covers
// the whole day.
func (c *Clock) IsBetween(from, to int) bool {
	return HourInRange(c.hour, from, to)
}

// HourInRange is the wrap-aware containment test behind IsBetween.
func HourInRange(hour, from, to int) bool {
	if from < to {
		return hour >= from && hour < to
	}
	return hour >= from || hour < to
}

// WeekDayIndex returns the 1-based position of the current day in its week.
func (c *Clock) WeekDayIndex() int {
	return c.day%c.settings.WeekLength + 1
}

// WeekDayName returns the configured name of the current week day, or
// "Day N" when no name is configured for that position.
func (c *Clock) WeekDayName() string {
	i := c.WeekDayIndex() - 1
	if i < len(c.settings.WeekDayNames) {
		return c.settings.WeekDayNames[i]
	}
	return fmt.Sprintf("Day %d", i+1)
}

// IsWeekend reports whether the current day falls on or after the weekend
// start. WeekendStartDay is a 0-based position within the week, compared
// against the 0-based position of the current day.
func (c *Clock) IsWeekend() bool {
	return c.WeekDayIndex()-1 >= c.settings.WeekendStartDay
}

// CurrentTimeSlotIndex returns the index of the time slot containing the
// current hour. Each slot runs until the next slot starts; the last slot
// wraps around to the first. ok is false when no slots are configured.
func (c *Clock) CurrentTimeSlotIndex() (idx int, ok bool) {
	slots := c.settings.TimeSlots
	if len(slots) == 0 {
		return 0, false
	}
	for i := 0; i < len(slots)-1; i++ {
		if c.IsBetween(slots[i].StartHour, slots[i+1].StartHour) {
			return i, true
		}
	}
	return len(slots) - 1, true
}

// CurrentTimeSlot returns the time slot containing the current hour.
func (c *Clock) CurrentTimeSlot() (model.TimeSlot, bool) {
	i, ok := c.CurrentTimeSlotIndex()
	if !ok {
		return model.TimeSlot{}, false
	}
	return c.settings.TimeSlots[i], true
}
