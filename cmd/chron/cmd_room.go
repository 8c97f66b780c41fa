package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/daviddao/chronicle/pkg/ledger"
)

func (a *app) cmdRoom(args []string) int {
	flags := flag.NewFlagSet("room", flag.ContinueOnError)
	day := flags.Int("day", -1, "evaluate at this day (-1 = current)")
	hour := flags.Int("hour", -1, "evaluate at this hour (-1 = current)")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: chron room <container> [--day D] [--hour H] [--json]")
		return 1
	}
	containerID := pos[0]

	l, err := a.reg.Ledger(containerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: room: %v\n", err)
		return 1
	}
	eval := a.evalAt(*day, *hour)
	visible := l.Visible(eval, a.reg)
	occupants := a.resolver().ResolveAt(eval.Clock().Day(), eval.Clock().Hour()).Occupants(containerID)

	if *jsonOut {
		printJSON(map[string]interface{}{
			"container": containerID,
			"day":       eval.Clock().Day(),
			"hour":      eval.Clock().Hour(),
			"attached":  l.Attached(),
			"visible":   visible,
			"occupants": occupants,
			"state":     l.State(),
		})
		return 0
	}

	fmt.Printf("%s @ %s\n", containerID, describeClock(eval.Clock()))
	fmt.Printf("attached: %s\n", joinOrNone(l.Attached()))
	if len(visible) == 0 {
		fmt.Println("visible: none")
	} else {
		fmt.Println("visible:")
		for _, e := range visible {
			fmt.Printf("  %s\n", describeEntry(e, l))
		}
	}
	fmt.Printf("occupants: %s\n", joinOrNone(occupants))
	return 0
}

func describeEntry(e ledger.Entry, l *ledger.Ledger) string {
	var tags []string
	if e.Default {
		tags = append(tags, "default")
	}
	if e.Disabled {
		tags = append(tags, "disabled")
	}
	if o, ok := l.Override(e.ID); ok && o.ToDay != nil {
		tags = append(tags, fmt.Sprintf("until day %d", *o.ToDay))
	}
	if x, ok := l.State().ExclusionOverrides[e.ID]; ok && !e.Default && x.ToDay != nil {
		tags = append(tags, fmt.Sprintf("detaching on day %d", *x.ToDay))
	}
	if len(tags) == 0 {
		return e.ID
	}
	return fmt.Sprintf("%-20s (%s)", e.ID, strings.Join(tags, ", "))
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
