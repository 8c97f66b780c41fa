package registry

import (
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/daviddao/chronicle/pkg/clock"
	"github.com/daviddao/chronicle/pkg/ledger"
	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/resolver"
	"github.com/daviddao/chronicle/pkg/store"
	"github.com/daviddao/chronicle/pkg/window"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestActivitiesAndContainers(t *testing.T) {
	r := New(newTestStore(t), quiet)
	if err := r.AddActivity(model.Activity{ID: "dance"}); err != nil {
		t.Fatalf("AddActivity: %v", err)
	}
	if err := r.AddActivity(model.Activity{ID: "dance"}); err == nil {
		t.Fatal("duplicate activity should fail")
	}
	if err := r.AddActivity(model.Activity{}); err == nil {
		t.Fatal("empty activity id should fail")
	}
	r.AddContainer(model.Container{ID: "hall", Defaults: []string{"dance"}})
	r.AddContainer(model.Container{ID: "yard"})
	if err := r.AddContainer(model.Container{ID: "hall"}); err == nil {
		t.Fatal("duplicate container should fail")
	}

	if _, ok := r.Activity("dance"); !ok {
		t.Fatal("Activity(dance) missing")
	}
	if _, ok := r.Container("nowhere"); ok {
		t.Fatal("unknown container should miss")
	}
	cs := r.Containers()
	if len(cs) != 2 || cs[0].ID != "hall" || cs[1].ID != "yard" {
		t.Fatalf("Containers: got %+v", cs)
	}
	if len(r.Activities()) != 1 {
		t.Fatal("Activities: want 1")
	}
}

func TestFixedPoolAppendOnly(t *testing.T) {
	r := New(newTestStore(t), quiet)
	r.RegisterCommitment(model.Commitment{ID: "a", Actors: []string{"x"}})
	r.RegisterCommitment(model.Commitment{ID: "b", Actors: []string{"x"}})
	if err := r.RegisterCommitment(model.Commitment{ID: "a"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if err := r.RemoveSessionCommitment("a"); err != nil {
		t.Fatalf("removing a fixed commitment should be ignored, got %v", err)
	}
	if got := r.FixedPool(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("FixedPool: got %v", got)
	}
	if p, _ := r.Pool("a"); p != model.PoolFixed {
		t.Fatalf("Pool(a): got %s", p)
	}
}

func TestSessionPool_AddRemovePersist(t *testing.T) {
	s := newTestStore(t)
	r := New(s, quiet)
	r.RegisterCommitment(model.Commitment{ID: "fixed", Actors: []string{"x"}})

	id1, err := r.AddSessionCommitment(model.Commitment{ID: "s1", Actors: []string{"x"}, ContainerID: "hall"})
	if err != nil || id1 != "s1" {
		t.Fatalf("AddSessionCommitment: %q %v", id1, err)
	}
	id2, err := r.AddSessionCommitment(model.Commitment{Actors: []string{"y"}})
	if err != nil || !strings.HasPrefix(id2, "c-") {
		t.Fatalf("generated id: %q %v", id2, err)
	}
	if again, err := r.AddSessionCommitment(model.Commitment{ID: "s1"}); err != nil || again != "s1" {
		t.Fatalf("duplicate add should be ignored: %q %v", again, err)
	}
	if _, err := r.AddSessionCommitment(model.Commitment{ID: "fixed"}); err == nil {
		t.Fatal("adding a fixed id to the session pool should fail")
	}
	if got := r.SessionPool(); !slices.Equal(got, []string{"s1", id2}) {
		t.Fatalf("SessionPool: got %v", got)
	}
	c, _ := r.Commitment(id2)
	if c.Mode != model.ModeAutomatic {
		t.Fatalf("default mode: got %q", c.Mode)
	}

	// A fresh registry over the same store sees the session pool.
	r2 := New(s, quiet)
	r2.RegisterCommitment(model.Commitment{ID: "fixed", Actors: []string{"x"}})
	if err := r2.LoadSession(); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got := r2.SessionPool(); !slices.Equal(got, []string{"s1", id2}) {
		t.Fatalf("reloaded SessionPool: got %v", got)
	}
	if c, ok := r2.Commitment("s1"); !ok || c.ContainerID != "hall" {
		t.Fatalf("reloaded s1: %+v %v", c, ok)
	}

	if err := r2.RemoveSessionCommitment("s1"); err != nil {
		t.Fatalf("RemoveSessionCommitment: %v", err)
	}
	if err := r2.RemoveSessionCommitment("ghost"); err != nil {
		t.Fatalf("unknown remove should be ignored: %v", err)
	}
	r3 := New(s, quiet)
	r3.LoadSession()
	if got := r3.SessionPool(); !slices.Equal(got, []string{id2}) {
		t.Fatalf("after remove: got %v", got)
	}
}

func TestLoadSession_DropsMissingDefinitions(t *testing.T) {
	s := newTestStore(t)
	s.SetProperty(SessionEntity, SessionCategory, KeySessionPool, []string{"lost"})
	r := New(s, quiet)
	if err := r.LoadSession(); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(r.SessionPool()) != 0 {
		t.Fatalf("missing definition should be dropped: %v", r.SessionPool())
	}
}

func TestSetCommitmentWindow(t *testing.T) {
	r := New(newTestStore(t), quiet)
	r.RegisterCommitment(model.Commitment{ID: "a", Actors: []string{"x"}, Window: model.WindowSpec{Priority: 1}})

	if err := r.SetCommitmentWindow("ghost", model.WindowSpec{}); err == nil {
		t.Fatal("unknown commitment should fail")
	}
	bad := model.WindowSpec{FromDay: model.Int(5), ToDay: model.Int(2)}
	if err := r.SetCommitmentWindow("a", bad); err == nil {
		t.Fatal("reversed days should fail")
	}
	if err := r.SetCommitmentWindow("a", model.WindowSpec{Priority: 9, ToDay: model.Int(4)}); err != nil {
		t.Fatalf("SetCommitmentWindow: %v", err)
	}
	c, _ := r.Commitment("a")
	if c.Priority() != 9 || c.Window.ToDay == nil || *c.Window.ToDay != 4 {
		t.Fatalf("window not applied: %+v", c.Window)
	}
	if w, ok := r.EntityWindow("a"); !ok || w.Priority != 9 {
		t.Fatalf("EntityWindow(a): %+v %v", w, ok)
	}
}

func TestLedgerAndSweepAll(t *testing.T) {
	r := New(newTestStore(t), quiet)
	r.AddActivity(model.Activity{ID: "dance"})
	r.AddActivity(model.Activity{ID: "feast"})
	r.AddContainer(model.Container{ID: "hall", Defaults: []string{"dance"}})

	if _, err := r.Ledger("nowhere"); err == nil {
		t.Fatal("unknown container should fail")
	}
	l, err := r.Ledger("hall")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	same, _ := r.Ledger("hall")
	if same != l {
		t.Fatal("Ledger should be cached")
	}
	l.Attach("feast", ledger.AttachOptions{ToDay: model.Int(3)})

	res, err := r.SweepAll(3)
	if err != nil {
		t.Fatalf("SweepAll: %v", err)
	}
	if !slices.Equal(res["hall"].Detached, []string{"feast"}) {
		t.Fatalf("SweepAll: got %+v", res)
	}
}

// TestResolveThroughRegistry wires the registry into the resolver: a
// session commitment outranks an equal-priority fixed one, and a window
// change takes effect on the next resolve.
func TestResolveThroughRegistry(t *testing.T) {
	r := New(newTestStore(t), quiet)
	r.RegisterCommitment(model.Commitment{ID: "shift", Actors: []string{"ann"}, Window: model.WindowSpec{Priority: 2}})
	r.AddSessionCommitment(model.Commitment{ID: "party", Actors: []string{"ann"}, Window: model.WindowSpec{Priority: 2}})

	c, _ := clock.New(model.DefaultTimeSettings(), model.TimeData{CurrentHour: 12})
	res := resolver.New(r, window.New(c, nil), quiet)
	if got := res.Resolve()["ann"].CommitmentID; got != "party" {
		t.Fatalf("got %s, want party", got)
	}

	r.SetCommitmentWindow("shift", model.WindowSpec{Priority: 3})
	if got := res.Resolve()["ann"].CommitmentID; got != "shift" {
		t.Fatalf("after priority bump: got %s, want shift", got)
	}
}
