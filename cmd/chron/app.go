package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/daviddao/chronicle/pkg/clock"
	"github.com/daviddao/chronicle/pkg/config"
	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/registry"
	"github.com/daviddao/chronicle/pkg/resolver"
	"github.com/daviddao/chronicle/pkg/store"
	"github.com/daviddao/chronicle/pkg/window"
)

// app holds shared state for all CLI subcommands.
type app struct {
	env   config.Env
	log   *slog.Logger
	store *store.Store

	// Set by loadWorld.
	scenario *config.Scenario
	reg      *registry.Registry
	clock    *clock.Clock
	eval     *window.Evaluator
}

// newApp opens the database, creating its directory if needed. Log records
// go to logOut.
func newApp(env config.Env, logOut io.Writer) (*app, error) {
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: env.SlogLevel()}))
	if dir := filepath.Dir(env.DB); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(env.DB)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", env.DB, err)
	}
	return &app{env: env, log: log, store: s}, nil
}

// Close releases the database connection.
func (a *app) Close() { a.store.Close() }

// loadWorld reads the scenario, registers it, restores the session pool
// and positions the clock from the stored time records.
func (a *app) loadWorld() error {
	sc, err := config.LoadScenario(a.env.Scenario)
	if err != nil {
		return err
	}
	reg := registry.New(a.store, a.log)
	if err := sc.Populate(reg); err != nil {
		return fmt.Errorf("scenario %s: %w", a.env.Scenario, err)
	}
	if err := reg.LoadSession(); err != nil {
		return err
	}

	settings, data, err := a.store.LoadTime()
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clock not initialized: run 'chron init'")
	} else if err != nil {
		return fmt.Errorf("load clock: %w", err)
	}
	c, err := clock.New(settings, data)
	if err != nil {
		return err
	}

	a.scenario = sc
	a.reg = reg
	a.clock = c
	a.eval = window.New(c, a.store)
	return nil
}

// resolver returns a resolver over the registry at the current time.
func (a *app) resolver() *resolver.Resolver {
	return resolver.New(a.reg, a.eval, a.log)
}

// evalAt returns the evaluator for (day, hour); -1 keeps the current value.
func (a *app) evalAt(day, hour int) *window.Evaluator {
	if day < 0 && hour < 0 {
		return a.eval
	}
	if day < 0 {
		day = a.clock.Day()
	}
	if hour < 0 {
		hour = a.clock.Hour()
	}
	return a.eval.At(day, hour)
}

// parseArgs parses flags that may appear before, between or after
// positional arguments, and returns the positionals in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// optInt converts the -1 "unset" sentinel used by int flags to nil.
func optInt(v int) *int {
	if v < 0 {
		return nil
	}
	return model.Int(v)
}

// windowFlags are the flags describing a window spec.
type windowFlags struct {
	fromHour, toHour, fromDay, toDay *int
	priority                         *int
	hidden, disabled                 *string
}

// addWindowFlags registers the window flags on fs.
func addWindowFlags(fs *flag.FlagSet) *windowFlags {
	return &windowFlags{
		fromHour: fs.Int("from-hour", -1, "first hour of the window (-1 = unset)"),
		toHour:   fs.Int("to-hour", -1, "hour the window closes (-1 = unset)"),
		fromDay:  fs.Int("from-day", -1, "first day of the window (-1 = unset)"),
		toDay:    fs.Int("to-day", -1, "day the window expires (-1 = unset)"),
		priority: fs.Int("priority", 0, "conflict priority"),
		hidden:   fs.String("hidden", "", "true, false, or a flag name (prefix ! to negate)"),
		disabled: fs.String("disabled", "", "true, false, or a flag name (prefix ! to negate)"),
	}
}

func (w *windowFlags) spec() model.WindowSpec {
	return model.WindowSpec{
		FromHour: optInt(*w.fromHour),
		ToHour:   optInt(*w.toHour),
		FromDay:  optInt(*w.fromDay),
		ToDay:    optInt(*w.toDay),
		Priority: *w.priority,
		Hidden:   model.ParseFlag(*w.hidden),
		Disabled: model.ParseFlag(*w.disabled),
	}
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// timeInfo is the clock position as shown by time and status.
type timeInfo struct {
	Day      int    `json:"day"`
	Hour     int    `json:"hour"`
	WeekDay  string `json:"week_day"`
	Weekend  bool   `json:"weekend"`
	TimeSlot string `json:"time_slot,omitempty"`
}

func describeClock(c *clock.Clock) timeInfo {
	ti := timeInfo{
		Day:     c.Day(),
		Hour:    c.Hour(),
		WeekDay: c.WeekDayName(),
		Weekend: c.IsWeekend(),
	}
	if slot, ok := c.CurrentTimeSlot(); ok {
		ti.TimeSlot = slot.Name
	}
	return ti
}

func (ti timeInfo) String() string {
	s := fmt.Sprintf("day %d, %02d:00, %s", ti.Day, ti.Hour, ti.WeekDay)
	if ti.TimeSlot != "" {
		s += " " + ti.TimeSlot
	}
	if ti.Weekend {
		s += " (weekend)"
	}
	return s
}
