// Command chron is the chronicle CLI: an in-game clock, time-windowed
// attachments per container, and per-actor commitment resolution.
package main

import (
	"fmt"
	"os"

	"github.com/daviddao/chronicle/pkg/config"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("chron", version)
		return
	}

	env, err := config.LoadEnv()
	if err != nil {
		fatal("%v", err)
	}
	a, err := newApp(env, os.Stderr)
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	cmd, args := os.Args[1], os.Args[2:]
	if cmd != "init" {
		if err := a.loadWorld(); err != nil {
			fatal("%v", err)
		}
	}

	os.Exit(a.run(cmd, args))
}

// run dispatches a subcommand and returns its exit code.
func (a *app) run(cmd string, args []string) int {
	switch cmd {
	// Setup
	case "init":
		return a.cmdInit(args)

	// Clock
	case "time":
		return a.cmdTime(args)
	case "advance", "adv":
		return a.cmdAdvance(args)

	// Ledgers
	case "attach":
		return a.cmdAttach(args)
	case "detach":
		return a.cmdDetach(args)
	case "sweep":
		return a.cmdSweep(args)
	case "room":
		return a.cmdRoom(args)

	// Commitments
	case "resolve":
		return a.cmdResolve(args)
	case "commit":
		return a.cmdCommit(args)

	// Conditions
	case "flag":
		return a.cmdFlag(args)
	case "quest":
		return a.cmdQuest(args)

	case "status":
		return a.cmdStatus(args)
	}
	fmt.Fprintf(os.Stderr, "chron: unknown command %q\n", cmd)
	fmt.Fprintln(os.Stderr, "Run 'chron --help' for usage.")
	return 1
}

func printUsage() {
	fmt.Print(`chron — in-game time, attachments and commitments

Usage:
  chron <command> [flags]

Setup:
  init                          Write a default scenario, initialize the clock

Clock:
  time                          Show day, hour, week day and time slot
  advance [--hours N] [--days N]
                                Move the clock forward, sweeping ledgers on a new day

Ledgers:
  attach <container> <entity> [--from-hour H --to-hour H] [--from-day D] [--to-day D]
                                Attach an entity to a container
  detach <container> <entity> [--to-day D]
                                Detach an entity (until day D, or for good)
  sweep                         Drop expired attachments, restore defaults
  room <container> [--day D --hour H]
                                Show what is attached and visible, and who is there

Commitments:
  resolve [--day D --hour H] [--actor ID]
                                Pick the active commitment for each actor
  commit list                   List fixed and session commitments
  commit add <actor,...> --container C [--mode M] [--priority P] [window flags]
                                Add a session commitment
  commit rm <id>                Remove a session commitment
  commit window <id> [window flags]
                                Replace a commitment's window

Conditions:
  flag set <name> [true|false]  Set a named flag
  flag unset <name>             Remove a named flag
  flag get <name>               Resolve a flag expression (!name, quest:ID:N)
  flag list                     List flags
  quest <id> [stage]            Show or set a quest stage

  status                        Clock, containers and assignments at a glance

Aliases:
  adv = advance

Environment:
  CHRONICLE_DB         SQLite database path (default: .chronicle/chronicle.db)
  CHRONICLE_SCENARIO   Scenario file (default: chronicle.yaml)
  CHRONICLE_LOG_LEVEL  debug, info, warn or error (default: info)

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  rejected (invalid window)
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "chron: "+format+"\n", args...)
	os.Exit(1)
}
