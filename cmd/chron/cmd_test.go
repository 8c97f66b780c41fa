package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/daviddao/chronicle/pkg/clock"
	"github.com/daviddao/chronicle/pkg/config"
	"github.com/daviddao/chronicle/pkg/model"
)

const testScenario = `version: 1
activities:
  - id: breakfast
    window: {from_hour: 6, to_hour: 10}
  - id: juggler
  - id: music
    window: {hidden: "!open"}
containers:
  - id: tavern
    defaults: [breakfast, music]
  - id: square
commitments:
  - id: shift
    actors: [ann]
    container: tavern
    window: {priority: 1}
`

// newTestApp returns an initialized app over a temp database and the test
// scenario, with the clock at day 1, hour 0.
func newTestApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	scenario := filepath.Join(dir, "chronicle.yaml")
	if err := os.WriteFile(scenario, []byte(testScenario), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := newApp(config.Env{
		DB:       filepath.Join(dir, "db", "test.db"),
		Scenario: scenario,
		LogLevel: "error",
	}, io.Discard)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.Close)
	captureStdout(t, func() {
		if code := a.run("init", nil); code != 0 {
			t.Fatalf("init: exit %d", code)
		}
	})
	return a
}

// runJSON runs a command with --json and decodes its output.
func runJSON(t *testing.T, a *app, args ...string) (map[string]interface{}, int) {
	t.Helper()
	var code int
	out := captureStdout(t, func() {
		code = a.run(args[0], append(args[1:], "--json"))
	})
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("%v: decode %q: %v", args, out, err)
	}
	return m, code
}

// --- helpers ---

func TestParseArgs_Interspersed(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	n := fs.Int("n", 0, "")
	j := fs.Bool("json", false, "")
	pos, err := parseArgs(fs, []string{"a", "--n", "3", "b", "--json"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !slices.Equal(pos, []string{"a", "b"}) || *n != 3 || !*j {
		t.Fatalf("got pos=%v n=%d json=%v", pos, *n, *j)
	}
}

func TestOptInt(t *testing.T) {
	if optInt(-1) != nil {
		t.Fatal("optInt(-1) should be nil")
	}
	if p := optInt(0); p == nil || *p != 0 {
		t.Fatal("optInt(0) should keep zero")
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(" ann, bob,,cat "); !slices.Equal(got, []string{"ann", "bob", "cat"}) {
		t.Fatalf("splitList: got %v", got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Fatalf("splitList(\"\"): got %v", got)
	}
}

func TestWindowFlags(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	w := addWindowFlags(fs)
	fs.Parse([]string{"--from-hour", "8", "--to-day", "4", "--hidden", "!open", "--disabled", "true", "--priority", "3"})
	spec := w.spec()
	if *spec.FromHour != 8 || spec.ToHour != nil || spec.FromDay != nil || *spec.ToDay != 4 {
		t.Fatalf("bounds: got %+v", spec)
	}
	if spec.Hidden.Name() != "!open" || spec.Disabled != model.Literal(true) || spec.Priority != 3 {
		t.Fatalf("flags: got %+v", spec)
	}
}

func TestTimeInfo_String(t *testing.T) {
	c, _ := clock.New(model.DefaultTimeSettings(), model.TimeData{CurrentDay: 5, CurrentHour: 13})
	got := describeClock(c).String()
	if got != "day 5, 13:00, Saturday afternoon (weekend)" {
		t.Fatalf("got %q", got)
	}
}

// --- commands ---

func TestInit_WritesScenarioAndClock(t *testing.T) {
	dir := t.TempDir()
	a, err := newApp(config.Env{
		DB:       filepath.Join(dir, "test.db"),
		Scenario: filepath.Join(dir, "chronicle.yaml"),
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	m, code := runJSON(t, a, "init")
	if code != 0 || m["scenario_written"] != true {
		t.Fatalf("init: code=%d out=%v", code, m)
	}
	tm := m["time"].(map[string]interface{})
	if tm["day"] != 1.0 || tm["hour"] != 0.0 {
		t.Fatalf("init clock: %v", tm)
	}
	if _, err := os.Stat(filepath.Join(dir, "chronicle.yaml")); err != nil {
		t.Fatalf("scenario not written: %v", err)
	}
}

func TestInit_KeepsPositionUnlessReset(t *testing.T) {
	a := newTestApp(t)
	captureStdout(t, func() { a.run("advance", []string{"--hours", "5"}) })

	m, _ := runJSON(t, a, "init")
	if m["time"].(map[string]interface{})["hour"] != 5.0 {
		t.Fatalf("re-init should keep the clock: %v", m["time"])
	}
	m, _ = runJSON(t, a, "init", "--reset")
	if m["time"].(map[string]interface{})["hour"] != 0.0 {
		t.Fatalf("--reset should rewind the clock: %v", m["time"])
	}
}

func TestLoadWorld_RequiresInit(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "chronicle.yaml")
	os.WriteFile(scenario, []byte(testScenario), 0644)
	a, err := newApp(config.Env{DB: filepath.Join(dir, "test.db"), Scenario: scenario}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.loadWorld(); err == nil || !strings.Contains(err.Error(), "chron init") {
		t.Fatalf("loadWorld before init: got %v", err)
	}
}

func TestAdvance_Default(t *testing.T) {
	a := newTestApp(t)
	m, code := runJSON(t, a, "advance")
	if code != 0 {
		t.Fatalf("advance: exit %d", code)
	}
	if m["time"].(map[string]interface{})["hour"] != 1.0 || m["days_passed"] != 0.0 {
		t.Fatalf("advance: %v", m)
	}
}

func TestAdvance_RollsOverAndSweeps(t *testing.T) {
	a := newTestApp(t)
	if _, code := runJSON(t, a, "attach", "square", "juggler", "--to-day", "2"); code != 0 {
		t.Fatalf("attach: exit %d", code)
	}

	m, code := runJSON(t, a, "advance", "--hours", "26")
	if code != 0 {
		t.Fatalf("advance: exit %d", code)
	}
	tm := m["time"].(map[string]interface{})
	if tm["day"] != 2.0 || tm["hour"] != 2.0 {
		t.Fatalf("advance 26h from day 1 hour 0: got %v", tm)
	}
	swept := m["swept"].(map[string]interface{})
	square := swept["square"].(map[string]interface{})
	if d := square["detached"].([]interface{}); len(d) != 1 || d[0] != "juggler" {
		t.Fatalf("swept: %v", swept)
	}

	// The new position is persisted.
	_, data, err := a.store.LoadTime()
	if err != nil || data.CurrentDay != 2 || data.CurrentHour != 2 {
		t.Fatalf("stored time: %+v %v", data, err)
	}
}

func TestAdvance_Days(t *testing.T) {
	a := newTestApp(t)
	m, _ := runJSON(t, a, "advance", "--days", "3", "--hours", "4")
	tm := m["time"].(map[string]interface{})
	if tm["day"] != 4.0 || tm["hour"] != 4.0 {
		t.Fatalf("got %v", tm)
	}
	if code := a.run("advance", []string{"--days", "-1"}); code != 1 {
		t.Fatalf("negative days: exit %d, want 1", code)
	}
}

func TestAttach_InvalidWindowRejected(t *testing.T) {
	a := newTestApp(t)
	m, code := runJSON(t, a, "attach", "square", "juggler", "--from-hour", "10", "--to-hour", "8")
	if code != 2 || m["rejected"] != true {
		t.Fatalf("reversed hours: code=%d out=%v", code, m)
	}
	_, code = runJSON(t, a, "attach", "square", "juggler", "--from-day", "5", "--to-day", "3")
	if code != 2 {
		t.Fatalf("reversed days: exit %d, want 2", code)
	}
	l, _ := a.reg.Ledger("square")
	if len(l.Attached()) != 0 {
		t.Fatalf("rejected attach must not change the ledger: %v", l.Attached())
	}
}

func TestAttach_UsageErrors(t *testing.T) {
	a := newTestApp(t)
	captureStderr(t, func() {
		if code := a.run("attach", []string{"square"}); code != 1 {
			t.Fatalf("missing entity: exit %d", code)
		}
		if code := a.run("attach", []string{"nowhere", "juggler"}); code != 1 {
			t.Fatalf("unknown container: exit %d", code)
		}
		if code := a.run("attach", []string{"square", "juggler", "--from-hour", "3"}); code != 1 {
			t.Fatalf("half an hour range: exit %d", code)
		}
	})
}

func TestAttach_DefaultReportsIgnored(t *testing.T) {
	a := newTestApp(t)
	m, code := runJSON(t, a, "attach", "tavern", "breakfast")
	if code != 0 {
		t.Fatalf("attach default: exit %d", code)
	}
	if m["attached"] != false || m["default"] != true {
		t.Fatalf("attaching a default must report attached=false: %v", m)
	}
	out := captureStdout(t, func() { a.run("attach", []string{"tavern", "breakfast"}) })
	if !strings.HasPrefix(out, "ignored:") {
		t.Fatalf("text output: %q", out)
	}

	m, _ = runJSON(t, a, "attach", "tavern", "juggler")
	if m["attached"] != true {
		t.Fatalf("runtime attach: %v", m)
	}
}

func TestRoom_VisibleAndOccupants(t *testing.T) {
	a := newTestApp(t)
	captureStdout(t, func() { a.run("advance", []string{"--hours", "7"}) })

	m, code := runJSON(t, a, "room", "tavern")
	if code != 0 {
		t.Fatalf("room: exit %d", code)
	}
	if ids := entryIDs(m["visible"]); !slices.Equal(ids, []string{"breakfast"}) {
		t.Fatalf("visible at 7 with the tavern closed: %v", ids)
	}
	if occ := m["occupants"].([]interface{}); len(occ) != 1 || occ[0] != "ann" {
		t.Fatalf("occupants: %v", occ)
	}

	captureStdout(t, func() { a.run("flag", []string{"set", "open"}) })
	m, _ = runJSON(t, a, "room", "tavern")
	if ids := entryIDs(m["visible"]); !slices.Equal(ids, []string{"breakfast", "music"}) {
		t.Fatalf("visible with the tavern open: %v", ids)
	}

	m, _ = runJSON(t, a, "room", "tavern", "--hour", "12")
	if ids := entryIDs(m["visible"]); !slices.Equal(ids, []string{"music"}) {
		t.Fatalf("visible at 12: %v", ids)
	}
}

func TestDetach_DefaultUntilDay(t *testing.T) {
	a := newTestApp(t)
	captureStdout(t, func() { a.run("advance", []string{"--hours", "7"}) })

	if _, code := runJSON(t, a, "detach", "tavern", "breakfast", "--to-day", "3"); code != 0 {
		t.Fatalf("detach: exit %d", code)
	}
	m, _ := runJSON(t, a, "room", "tavern")
	if ids := entryIDs(m["visible"]); len(ids) != 0 {
		t.Fatalf("breakfast should be suppressed: %v", ids)
	}

	m, _ = runJSON(t, a, "advance", "--days", "2", "--hours", "7")
	if _, ok := m["swept"].(map[string]interface{})["tavern"]; !ok {
		t.Fatalf("day 3 should restore breakfast: %v", m["swept"])
	}
	m, _ = runJSON(t, a, "room", "tavern")
	if ids := entryIDs(m["visible"]); !slices.Equal(ids, []string{"breakfast"}) {
		t.Fatalf("after restore: %v", ids)
	}
}

func TestCommit_AddResolveRemove(t *testing.T) {
	a := newTestApp(t)

	m, code := runJSON(t, a, "commit", "add", "ann,bob", "--container", "square", "--priority", "5", "--mode", "interaction")
	if code != 0 {
		t.Fatalf("commit add: exit %d", code)
	}
	id, _ := m["id"].(string)
	if !strings.HasPrefix(id, "c-") {
		t.Fatalf("generated id: %v", m)
	}

	m, _ = runJSON(t, a, "resolve")
	asg := m["assignments"].([]interface{})
	if len(asg) != 2 {
		t.Fatalf("assignments: %v", asg)
	}
	for _, x := range asg {
		row := x.(map[string]interface{})
		if row["commitment_id"] != id || row["container_id"] != "square" || row["mode"] != "interaction" {
			t.Fatalf("row: %v", row)
		}
	}

	m, _ = runJSON(t, a, "resolve", "--actor", "ann")
	if m["assigned"] != true {
		t.Fatalf("ActiveFor ann: %v", m)
	}

	if _, code := runJSON(t, a, "commit", "rm", id); code != 0 {
		t.Fatalf("commit rm: exit %d", code)
	}
	m, _ = runJSON(t, a, "resolve", "--actor", "ann")
	asgn := m["assignment"].(map[string]interface{})
	if asgn["commitment_id"] != "shift" {
		t.Fatalf("after removal ann should fall back to shift: %v", m)
	}
}

func TestResolve_ActorAtHour(t *testing.T) {
	a := newTestApp(t)
	if _, code := runJSON(t, a, "commit", "add", "ann", "--id", "lunch", "--container", "square",
		"--from-hour", "12", "--to-hour", "14", "--priority", "5"); code != 0 {
		t.Fatalf("commit add: exit %d", code)
	}

	m, _ := runJSON(t, a, "resolve", "--actor", "ann", "--hour", "13")
	asg := m["assignment"].(map[string]interface{})
	if m["assigned"] != true || asg["commitment_id"] != "lunch" {
		t.Fatalf("ann at 13: %v", m)
	}
	m, _ = runJSON(t, a, "resolve", "--actor", "ann", "--hour", "15")
	asg = m["assignment"].(map[string]interface{})
	if asg["commitment_id"] != "shift" {
		t.Fatalf("ann at 15 should fall back to shift: %v", m)
	}
	m, _ = runJSON(t, a, "resolve", "--actor", "nobody")
	if m["assigned"] != false {
		t.Fatalf("unknown actor should be free: %v", m)
	}
}

func TestCommit_Window(t *testing.T) {
	a := newTestApp(t)
	if _, code := runJSON(t, a, "commit", "window", "shift", "--from-day", "3"); code != 0 {
		t.Fatalf("commit window: exit %d", code)
	}
	m, _ := runJSON(t, a, "resolve")
	if asg, _ := m["assignments"].([]interface{}); len(asg) != 0 {
		t.Fatalf("shift starts on day 3: %v", asg)
	}
	m, _ = runJSON(t, a, "resolve", "--day", "3")
	if asg, _ := m["assignments"].([]interface{}); len(asg) != 1 {
		t.Fatalf("day 3: %v", asg)
	}

	if _, code := runJSON(t, a, "commit", "window", "shift", "--from-day", "4", "--to-day", "2"); code != 2 {
		t.Fatalf("reversed days: exit %d, want 2", code)
	}
	captureStderr(t, func() {
		if code := a.run("commit", []string{"window", "ghost"}); code != 1 {
			t.Fatalf("unknown commitment: exit %d", code)
		}
	})
}

func TestFlagAndQuest(t *testing.T) {
	a := newTestApp(t)
	runJSON(t, a, "flag", "set", "rain")
	m, _ := runJSON(t, a, "flag", "get", "!rain")
	if m["value"] != false {
		t.Fatalf("!rain: %v", m)
	}
	runJSON(t, a, "flag", "set", "rain", "false")
	m, _ = runJSON(t, a, "flag", "get", "rain")
	if m["value"] != false {
		t.Fatalf("rain after set false: %v", m)
	}

	m, _ = runJSON(t, a, "quest", "rescue", "2")
	if m["stage"] != 2.0 {
		t.Fatalf("quest: %v", m)
	}
	m, _ = runJSON(t, a, "flag", "get", "quest:rescue:2")
	if m["value"] != true {
		t.Fatalf("quest:rescue:2: %v", m)
	}
	m, _ = runJSON(t, a, "flag", "get", "quest:rescue:3")
	if m["value"] != false {
		t.Fatalf("quest:rescue:3: %v", m)
	}

	captureStderr(t, func() {
		if code := a.run("flag", []string{"set", "rain", "maybe"}); code != 1 {
			t.Fatalf("non-boolean value: exit %d", code)
		}
		if code := a.run("quest", []string{"rescue", "x"}); code != 1 {
			t.Fatalf("bad stage: exit %d", code)
		}
	})
}

func TestStatus(t *testing.T) {
	a := newTestApp(t)
	m, code := runJSON(t, a, "status")
	if code != 0 {
		t.Fatalf("status: exit %d", code)
	}
	if rooms := m["containers"].([]interface{}); len(rooms) != 2 {
		t.Fatalf("containers: %v", rooms)
	}
	out := captureStdout(t, func() { a.run("status", nil) })
	if !strings.Contains(out, "day 1, 00:00") || !strings.Contains(out, "shift") {
		t.Fatalf("status text: %q", out)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	a := newTestApp(t)
	captureStderr(t, func() {
		if code := a.run("dance", nil); code != 1 {
			t.Fatalf("exit %d, want 1", code)
		}
	})
}

func entryIDs(v interface{}) []string {
	var ids []string
	list, _ := v.([]interface{})
	for _, e := range list {
		ids = append(ids, e.(map[string]interface{})["id"].(string))
	}
	return ids
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}
