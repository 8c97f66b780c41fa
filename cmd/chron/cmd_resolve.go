package main

import (
	"flag"
	"fmt"

	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/resolver"
)

func (a *app) cmdResolve(args []string) int {
	flags := flag.NewFlagSet("resolve", flag.ContinueOnError)
	day := flags.Int("day", -1, "resolve at this day (-1 = current)")
	hour := flags.Int("hour", -1, "resolve at this hour (-1 = current)")
	actor := flags.String("actor", "", "only show this actor")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	eval := a.evalAt(*day, *hour)
	r := resolver.New(a.reg, eval, a.log)

	if *actor != "" {
		asg, ok := r.ActiveFor(*actor)
		if *jsonOut {
			printJSON(map[string]interface{}{"actor": *actor, "assigned": ok, "assignment": asg})
		} else if ok {
			printAssignment(asg)
		} else {
			fmt.Printf("%s: free\n", *actor)
		}
		return 0
	}

	sorted := r.Resolve().Sorted()
	if *jsonOut {
		printJSON(map[string]interface{}{
			"day":         eval.Clock().Day(),
			"hour":        eval.Clock().Hour(),
			"assignments": sorted,
		})
		return 0
	}
	if len(sorted) == 0 {
		fmt.Println("no active commitments")
		return 0
	}
	for _, asg := range sorted {
		printAssignment(asg)
	}
	return 0
}

func printAssignment(asg model.Assignment) {
	fmt.Printf("  %-15s -> %-20s in %-15s %s pri=%d %s\n",
		asg.Actor, asg.CommitmentID, asg.ContainerID, asg.Mode, asg.Priority, asg.Pool)
}
