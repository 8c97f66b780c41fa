package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/chronicle/pkg/ledger"
)

// containerStatus summarizes one container for status.
type containerStatus struct {
	ID        string         `json:"id"`
	Visible   []ledger.Entry `json:"visible"`
	Excluded  []string       `json:"excluded,omitempty"`
	Occupants []string       `json:"occupants"`
}

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	res := a.resolver().Resolve()
	var rooms []containerStatus
	for _, c := range a.reg.Containers() {
		l, err := a.reg.Ledger(c.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "chron: status: %v\n", err)
			return 1
		}
		rooms = append(rooms, containerStatus{
			ID:        c.ID,
			Visible:   l.Visible(a.eval, a.reg),
			Excluded:  l.State().ExcludedIDs,
			Occupants: res.Occupants(c.ID),
		})
	}
	flagEntries, _ := a.store.ListFlags()

	if *jsonOut {
		printJSON(map[string]interface{}{
			"time":         describeClock(a.clock),
			"containers":   rooms,
			"assignments":  res.Sorted(),
			"session_pool": a.reg.SessionPool(),
			"flags":        flagEntries,
		})
		return 0
	}

	fmt.Println(describeClock(a.clock))
	if len(rooms) > 0 {
		fmt.Println("containers:")
		for _, r := range rooms {
			ids := make([]string, len(r.Visible))
			for i, e := range r.Visible {
				ids[i] = e.ID
				if e.Disabled {
					ids[i] += " (disabled)"
				}
			}
			fmt.Printf("  %-15s visible=%s occupants=%s\n", r.ID, joinOrNone(ids), joinOrNone(r.Occupants))
		}
	} else {
		fmt.Println("containers: none")
	}
	if sorted := res.Sorted(); len(sorted) > 0 {
		fmt.Println("assignments:")
		for _, asg := range sorted {
			printAssignment(asg)
		}
	} else {
		fmt.Println("assignments: none")
	}
	if len(flagEntries) > 0 {
		fmt.Printf("flags: %d set\n", len(flagEntries))
	}
	return 0
}
