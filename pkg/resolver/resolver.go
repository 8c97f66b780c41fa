// Package resolver picks, for each actor, at most one active commitment.
//
// Candidates are visited in a fixed order: the session pool newest first,
// then the fixed pool newest first. A visible candidate claims all of its
// actors when every one of them is either free or held by a commitment of
// strictly lower priority; otherwise it claims none of them. Multi-actor
// commitments are never split.
//
// That gives a deterministic ranking every caller agrees on:
//
//	higher priority, then
//	session pool before fixed pool, then
//	more recently added or registered first.
package resolver

import (
	"log/slog"
	"slices"

	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/window"
)

// Pools is the source of candidate commitments.
type Pools interface {
	FixedPool() []string
	SessionPool() []string
	Commitment(id string) (model.Commitment, bool)
}

// Candidate is a commitment tagged with its pool.
type Candidate struct {
	model.Commitment
	Pool model.Pool `json:"pool"`
}

// Resolution maps actor ids to their winning commitment.
type Resolution map[string]model.Assignment

// Occupants returns the actors bound to containerID, sorted.
func (res Resolution) Occupants(containerID string) []string {
	var actors []string
	for actor, a := range res {
		if a.ContainerID == containerID {
			actors = append(actors, actor)
		}
	}
	slices.Sort(actors)
	return actors
}

// Sorted returns the assignments ordered by actor.
func (res Resolution) Sorted() []model.Assignment {
	out := make([]model.Assignment, 0, len(res))
	for _, a := range res {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y model.Assignment) int {
		switch {
		case x.Actor < y.Actor:
			return -1
		case x.Actor > y.Actor:
			return 1
		}
		return 0
	})
	return out
}

// Candidates returns the pools' commitments in visiting order. Ids the pools
// cannot resolve are reported and skipped.
func Candidates(p Pools, log *slog.Logger) []Candidate {
	if log == nil {
		log = slog.Default()
	}
	var out []Candidate
	add := func(ids []string, pool model.Pool) {
		for i := len(ids) - 1; i >= 0; i-- {
			c, ok := p.Commitment(ids[i])
			if !ok {
				log.Warn("commitment not found", "commitment", ids[i], "pool", pool)
				continue
			}
			out = append(out, Candidate{Commitment: c, Pool: pool})
		}
	}
	add(p.SessionPool(), model.PoolSession)
	add(p.FixedPool(), model.PoolFixed)
	return out
}

// Assign runs the claim pass over cands in the given order.
func Assign(cands []Candidate, eval *window.Evaluator, log *slog.Logger) Resolution {
	if log == nil {
		log = slog.Default()
	}
	res := Resolution{}
	for _, c := range cands {
		if eval.Hidden(c.Window) {
			continue
		}
		if len(c.Actors) == 0 {
			log.Warn("commitment has no actors", "commitment", c.ID)
			continue
		}
		if !claims(res, c) {
			continue
		}
		for _, actor := range c.Actors {
			res[actor] = model.Assignment{
				Actor:        actor,
				CommitmentID: c.ID,
				ContainerID:  c.ContainerID,
				Mode:         c.Mode,
				Priority:     c.Priority(),
				Pool:         c.Pool,
			}
		}
	}
	return res
}

// claims reports whether c outranks the current holder of every one of its
// actors.
func claims(res Resolution, c Candidate) bool {
	for _, actor := range c.Actors {
		if held, ok := res[actor]; ok && held.Priority >= c.Priority() {
			return false
		}
	}
	return true
}

// Resolver resolves commitments from a set of pools.
type Resolver struct {
	pools Pools
	eval  *window.Evaluator
	log   *slog.Logger
}

// New returns a resolver over pools evaluated with eval.
func New(pools Pools, eval *window.Evaluator, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{pools: pools, eval: eval, log: log}
}

// Resolve assigns commitments at the evaluator's current time.
func (r *Resolver) Resolve() Resolution {
	return Assign(Candidates(r.pools, r.log), r.eval, r.log)
}

// ResolveAt assigns commitments as of (day, hour).
func (r *Resolver) ResolveAt(day, hour int) Resolution {
	return Assign(Candidates(r.pools, r.log), r.eval.At(day, hour), r.log)
}

// ActiveFor returns the commitment actor is bound to at the evaluator's
// time.
func (r *Resolver) ActiveFor(actor string) (model.Assignment, bool) {
	a, ok := r.Resolve()[actor]
	return a, ok
}
