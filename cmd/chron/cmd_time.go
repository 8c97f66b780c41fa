package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/daviddao/chronicle/pkg/ledger"
)

func (a *app) cmdTime(args []string) int {
	flags := flag.NewFlagSet("time", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ti := describeClock(a.clock)
	if *jsonOut {
		printJSON(ti)
	} else {
		fmt.Println(ti)
	}
	return 0
}

func (a *app) cmdAdvance(args []string) int {
	flags := flag.NewFlagSet("advance", flag.ContinueOnError)
	hours := flags.Int("hours", 0, "hours to spend (0 = the default time spent)")
	days := flags.Int("days", 0, "whole days to skip, landing at the first hour")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *days < 0 {
		fmt.Fprintln(os.Stderr, "chron: advance: --days must not be negative")
		return 1
	}

	before := a.clock.Day()
	switch {
	case *days > 0:
		a.clock.AdvanceDay(a.clock.MinHour(), *days)
		if *hours != 0 {
			a.clock.AdvanceHour(*hours)
		}
	case *hours != 0:
		a.clock.AdvanceHour(*hours)
	default:
		a.clock.Spend()
	}

	// The new position is saved before ledgers are swept.
	if err := a.store.SaveTimeData(a.clock.Data()); err != nil {
		fmt.Fprintf(os.Stderr, "chron: advance: %v\n", err)
		return 1
	}

	var swept map[string]ledger.SweepResult
	if a.clock.Day() != before {
		var err error
		swept, err = a.reg.SweepAll(a.clock.Day())
		if err != nil {
			fmt.Fprintf(os.Stderr, "chron: advance: sweep: %v\n", err)
			return 1
		}
	}

	ti := describeClock(a.clock)
	if *jsonOut {
		printJSON(map[string]interface{}{
			"time":        ti,
			"days_passed": a.clock.Day() - before,
			"swept":       swept,
		})
		return 0
	}
	fmt.Println(ti)
	printSweep(swept)
	return 0
}

func (a *app) cmdSweep(args []string) int {
	flags := flag.NewFlagSet("sweep", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	swept, err := a.reg.SweepAll(a.clock.Day())
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: sweep: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"day": a.clock.Day(), "swept": swept})
		return 0
	}
	if len(swept) == 0 {
		fmt.Println("nothing to sweep")
		return 0
	}
	printSweep(swept)
	return 0
}

func printSweep(swept map[string]ledger.SweepResult) {
	for _, container := range slices.Sorted(maps.Keys(swept)) {
		res := swept[container]
		for _, id := range res.Detached {
			fmt.Printf("  %s: detached %s\n", container, id)
		}
		for _, id := range res.Restored {
			fmt.Printf("  %s: restored %s\n", container, id)
		}
	}
}
