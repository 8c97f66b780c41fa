package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

func (a *app) cmdFlag(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chron flag <set|unset|get|list> ...")
		return 1
	}
	sub, rest := args[0], args[1:]

	flags := flag.NewFlagSet("flag "+sub, flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, rest)
	if err != nil {
		return 1
	}

	switch sub {
	case "set":
		if len(pos) < 1 || len(pos) > 2 {
			fmt.Fprintln(os.Stderr, "usage: chron flag set <name> [true|false]")
			return 1
		}
		value := true
		if len(pos) == 2 {
			if value, err = strconv.ParseBool(pos[1]); err != nil {
				fmt.Fprintf(os.Stderr, "chron: flag set: %q is not a boolean\n", pos[1])
				return 1
			}
		}
		if err := a.store.SetFlag(pos[0], value); err != nil {
			fmt.Fprintf(os.Stderr, "chron: flag set: %v\n", err)
			return 1
		}
		if *jsonOut {
			printJSON(map[string]interface{}{"name": pos[0], "value": value})
		} else {
			fmt.Printf("%s = %v\n", pos[0], value)
		}

	case "unset":
		if len(pos) != 1 {
			fmt.Fprintln(os.Stderr, "usage: chron flag unset <name>")
			return 1
		}
		if err := a.store.DeleteFlag(pos[0]); err != nil {
			fmt.Fprintf(os.Stderr, "chron: flag unset: %v\n", err)
			return 1
		}
		if *jsonOut {
			printJSON(map[string]interface{}{"name": pos[0], "unset": true})
		} else {
			fmt.Printf("unset %s\n", pos[0])
		}

	case "get":
		if len(pos) != 1 {
			fmt.Fprintln(os.Stderr, "usage: chron flag get <name>")
			return 1
		}
		value := a.store.ResolveFlag(pos[0])
		if *jsonOut {
			printJSON(map[string]interface{}{"name": pos[0], "value": value})
		} else {
			fmt.Printf("%s = %v\n", pos[0], value)
		}

	case "list", "ls":
		entries, err := a.store.ListFlags()
		if err != nil {
			fmt.Fprintf(os.Stderr, "chron: flag list: %v\n", err)
			return 1
		}
		if *jsonOut {
			printJSON(entries)
			return 0
		}
		if len(entries) == 0 {
			fmt.Println("no flags")
			return 0
		}
		for _, e := range entries {
			fmt.Printf("  %-30s %v\n", e.Name, e.Value)
		}

	default:
		fmt.Fprintf(os.Stderr, "chron: flag: unknown subcommand %q\n", sub)
		return 1
	}
	return 0
}

func (a *app) cmdQuest(args []string) int {
	flags := flag.NewFlagSet("quest", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) < 1 || len(pos) > 2 {
		fmt.Fprintln(os.Stderr, "usage: chron quest <id> [stage] [--json]")
		return 1
	}
	questID := pos[0]

	if len(pos) == 2 {
		stage, err := strconv.Atoi(pos[1])
		if err != nil || stage < 0 {
			fmt.Fprintf(os.Stderr, "chron: quest: %q is not a stage\n", pos[1])
			return 1
		}
		if err := a.store.SetQuestStage(questID, stage); err != nil {
			fmt.Fprintf(os.Stderr, "chron: quest: %v\n", err)
			return 1
		}
	}

	stage, err := a.store.QuestStage(questID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chron: quest: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"quest": questID, "stage": stage})
	} else {
		fmt.Printf("%s: stage %d\n", questID, stage)
	}
	return 0
}
