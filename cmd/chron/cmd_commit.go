package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/chronicle/pkg/model"
)

func (a *app) cmdCommit(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chron commit <list|add|rm|window> ...")
		return 1
	}
	switch args[0] {
	case "list", "ls":
		return a.cmdCommitList(args[1:])
	case "add":
		return a.cmdCommitAdd(args[1:])
	case "rm", "remove":
		return a.cmdCommitRemove(args[1:])
	case "window":
		return a.cmdCommitWindow(args[1:])
	}
	fmt.Fprintf(os.Stderr, "chron: commit: unknown subcommand %q\n", args[0])
	return 1
}

type commitmentInfo struct {
	model.Commitment
	Pool  model.Pool `json:"pool"`
	Phase string     `json:"phase"`
}

func (a *app) cmdCommitList(args []string) int {
	flags := flag.NewFlagSet("commit list", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var infos []commitmentInfo
	for _, ids := range [][]string{a.reg.FixedPool(), a.reg.SessionPool()} {
		for _, id := range ids {
			c, ok := a.reg.Commitment(id)
			if !ok {
				continue
			}
			pool, _ := a.reg.Pool(id)
			infos = append(infos, commitmentInfo{Commitment: c, Pool: pool, Phase: string(a.eval.Phase(c.Window))})
		}
	}

	if *jsonOut {
		printJSON(infos)
		return 0
	}
	if len(infos) == 0 {
		fmt.Println("no commitments")
		return 0
	}
	for _, ci := range infos {
		fmt.Printf("  %-20s %-7s %-8s pri=%-3d in %-15s actors=%s\n",
			ci.ID, ci.Pool, ci.Phase, ci.Priority(), ci.ContainerID, joinOrNone(ci.Actors))
	}
	return 0
}

func (a *app) cmdCommitAdd(args []string) int {
	flags := flag.NewFlagSet("commit add", flag.ContinueOnError)
	id := flags.String("id", "", "commitment id (generated if empty)")
	container := flags.String("container", "", "container the actors go to")
	mode := flags.String("mode", string(model.ModeAutomatic), "automatic or interaction")
	w := addWindowFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 || *container == "" {
		fmt.Fprintln(os.Stderr, "usage: chron commit add <actor,...> --container C [--id ID] [--mode M] [--priority P] [window flags] [--json]")
		return 1
	}
	m := model.ExecutionMode(*mode)
	if m != model.ModeAutomatic && m != model.ModeInteraction {
		fmt.Fprintf(os.Stderr, "chron: commit add: unknown mode %q\n", *mode)
		return 1
	}
	spec := w.spec()
	if spec.FromDay != nil && spec.ToDay != nil && *spec.FromDay >= *spec.ToDay {
		return reject(*jsonOut, fmt.Sprintf("from-day %d must be before to-day %d", *spec.FromDay, *spec.ToDay))
	}

	got, err := a.reg.AddSessionCommitment(model.Commitment{
		ID:          *id,
		Actors:      splitList(pos[0]),
		ContainerID: *container,
		Mode:        m,
		Window:      spec,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: commit add: %v\n", err)
		return 1
	}
	if *jsonOut {
		c, _ := a.reg.Commitment(got)
		printJSON(c)
	} else {
		fmt.Printf("added %s\n", got)
	}
	return 0
}

func (a *app) cmdCommitRemove(args []string) int {
	flags := flag.NewFlagSet("commit rm", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: chron commit rm <id> [--json]")
		return 1
	}
	if err := a.reg.RemoveSessionCommitment(pos[0]); err != nil {
		fmt.Fprintf(os.Stderr, "chron: commit rm: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"id": pos[0], "session_pool": a.reg.SessionPool()})
	} else {
		fmt.Printf("removed %s\n", pos[0])
	}
	return 0
}

func (a *app) cmdCommitWindow(args []string) int {
	flags := flag.NewFlagSet("commit window", flag.ContinueOnError)
	w := addWindowFlags(flags)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: chron commit window <id> [window flags] [--json]")
		return 1
	}
	id := pos[0]
	if _, ok := a.reg.Commitment(id); !ok {
		fmt.Fprintf(os.Stderr, "chron: commit window: unknown commitment %q\n", id)
		return 1
	}
	spec := w.spec()
	if spec.FromDay != nil && spec.ToDay != nil && *spec.FromDay >= *spec.ToDay {
		return reject(*jsonOut, fmt.Sprintf("from-day %d must be before to-day %d", *spec.FromDay, *spec.ToDay))
	}
	if err := a.reg.SetCommitmentWindow(id, spec); err != nil {
		fmt.Fprintf(os.Stderr, "chron: commit window: %v\n", err)
		return 1
	}
	if *jsonOut {
		c, _ := a.reg.Commitment(id)
		printJSON(c)
	} else {
		fmt.Printf("updated window of %s\n", id)
	}
	return 0
}
