package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/chronicle/pkg/config"
	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/store"
)

func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	reset := flags.Bool("reset", false, "move the clock back to the first day")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	wrote, err := config.WriteDefaultScenario(a.env.Scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: init: %v\n", err)
		return 1
	}
	sc, err := config.LoadScenario(a.env.Scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: init: %v\n", err)
		return 1
	}

	// Settings always follow the scenario; the position survives re-init.
	if err := a.store.SaveTimeSettings(sc.Time); err != nil {
		fmt.Fprintf(os.Stderr, "chron: init: %v\n", err)
		return 1
	}
	_, data, err := a.store.LoadTime()
	fresh := errors.Is(err, store.ErrNotFound)
	if err != nil && !fresh {
		fmt.Fprintf(os.Stderr, "chron: init: %v\n", err)
		return 1
	}
	if fresh || *reset {
		data = model.TimeData{CurrentDay: 1, CurrentHour: sc.Time.MinHour}
		if err := a.store.SaveTimeData(data); err != nil {
			fmt.Fprintf(os.Stderr, "chron: init: %v\n", err)
			return 1
		}
	}

	if err := a.loadWorld(); err != nil {
		fmt.Fprintf(os.Stderr, "chron: init: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"db":               a.env.DB,
			"scenario":         a.env.Scenario,
			"scenario_written": wrote,
			"time":             describeClock(a.clock),
			"containers":       len(a.reg.Containers()),
			"commitments":      len(a.reg.FixedPool()),
		})
		return 0
	}

	fmt.Printf("initialized chronicle (db: %s)\n", a.env.DB)
	if wrote {
		fmt.Printf("  wrote default scenario to %s\n", a.env.Scenario)
	} else {
		fmt.Printf("  using scenario %s\n", a.env.Scenario)
	}
	fmt.Printf("  %d activities, %d containers, %d fixed commitments\n",
		len(a.reg.Activities()), len(a.reg.Containers()), len(a.reg.FixedPool()))
	fmt.Printf("  clock: %s\n", describeClock(a.clock))
	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  chron status        # overview")
	fmt.Println("  chron advance       # move time forward")
	return 0
}
