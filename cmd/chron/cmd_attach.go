package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/chronicle/pkg/ledger"
	"github.com/daviddao/chronicle/pkg/model"
)

func (a *app) cmdAttach(args []string) int {
	flags := flag.NewFlagSet("attach", flag.ContinueOnError)
	fromHour := flags.Int("from-hour", -1, "first hour the attachment is present (-1 = unset)")
	toHour := flags.Int("to-hour", -1, "hour the attachment leaves (-1 = unset)")
	fromDay := flags.Int("from-day", -1, "first day the attachment is present (-1 = unset)")
	toDay := flags.Int("to-day", -1, "day the attachment is swept (-1 = unset)")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 2 {
		fmt.Fprintln(os.Stderr, "usage: chron attach <container> <entity> [--from-hour H --to-hour H] [--from-day D] [--to-day D] [--json]")
		return 1
	}
	if (*fromHour < 0) != (*toHour < 0) {
		fmt.Fprintln(os.Stderr, "chron: attach: --from-hour and --to-hour go together")
		return 1
	}
	containerID, entity := pos[0], pos[1]

	l, err := a.reg.Ledger(containerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: attach: %v\n", err)
		return 1
	}
	opts := ledger.AttachOptions{FromDay: optInt(*fromDay), ToDay: optInt(*toDay)}
	if *fromHour >= 0 {
		opts.Hours = &model.HourRange{From: *fromHour, To: *toHour}
	}
	if err := l.Attach(entity, opts); err != nil {
		return a.ledgerErr("attach", err, *jsonOut)
	}

	// Attach ignores defaults and already-attached entities without options.
	attached := l.IsAdditional(entity)
	override, _ := l.Override(entity)
	if *jsonOut {
		printJSON(map[string]interface{}{
			"attached":  attached,
			"container": containerID,
			"entity":    entity,
			"override":  override,
			"default":   l.IsDefault(entity),
		})
	} else if attached {
		fmt.Printf("attached %s to %s\n", entity, containerID)
	} else {
		fmt.Printf("ignored: %s is a default of %s\n", entity, containerID)
	}
	return 0
}

func (a *app) cmdDetach(args []string) int {
	flags := flag.NewFlagSet("detach", flag.ContinueOnError)
	toDay := flags.Int("to-day", -1, "keep until this day instead of detaching now (-1 = now)")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 2 {
		fmt.Fprintln(os.Stderr, "usage: chron detach <container> <entity> [--to-day D] [--json]")
		return 1
	}
	containerID, entity := pos[0], pos[1]

	l, err := a.reg.Ledger(containerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: detach: %v\n", err)
		return 1
	}
	if err := l.Detach(entity, ledger.DetachOptions{ToDay: optInt(*toDay)}); err != nil {
		return a.ledgerErr("detach", err, *jsonOut)
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"container": containerID,
			"entity":    entity,
			"state":     l.State(),
		})
	} else if *toDay >= 0 {
		fmt.Printf("detached %s from %s until day %d\n", entity, containerID, *toDay)
	} else {
		fmt.Printf("detached %s from %s\n", entity, containerID)
	}
	return 0
}

// ledgerErr reports a ledger failure. Invalid windows are rejections
// (exit 2); anything else is an error.
func (a *app) ledgerErr(op string, err error, jsonOut bool) int {
	if errors.Is(err, ledger.ErrInvalidWindow) {
		return reject(jsonOut, err.Error())
	}
	fmt.Fprintf(os.Stderr, "chron: %s: %v\n", op, err)
	return 1
}

// reject reports a rejected request and returns exit code 2.
func reject(jsonOut bool, reason string) int {
	if jsonOut {
		printJSON(map[string]interface{}{"rejected": true, "reason": reason})
	} else {
		fmt.Printf("REJECTED: %s\n", reason)
	}
	return 2
}
