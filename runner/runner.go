// Package runner drives tracker execution: a single-threaded scan, once per
// host tick, advancing each Pending tracker to a settled state.
package runner

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/fusabi-lang/fusabi-host/script"
)

var log = commonlog.GetLogger("fusabi.runner")

// Outcome reports one tracker the Runner acted on during a tick: a state
// transition, or an error surfaced for the host to observe.
type Outcome struct {
	Owner OwnerID
	State State
	Err   error
}

// Runner scans trackers each tick and executes the pending ones. It never
// blocks on an unresolved artifact and never spawns goroutines; the host
// calls Tick from its update loop.
type Runner struct {
	store    *script.Store
	trackers *TrackerSet
	pool     *VMPool

	// RetryOnTrap selects the trap policy: true leaves a trapped tracker
	// Pending so it is retried next tick, false settles it as Failed for
	// the current generation. Either way the trap detail is recorded.
	RetryOnTrap bool
}

// NewRunner creates a runner over the given store, trackers and engine
// pool.
func NewRunner(store *script.Store, trackers *TrackerSet, pool *VMPool) *Runner {
	return &Runner{
		store:    store,
		trackers: trackers,
		pool:     pool,
	}
}

// Tick evaluates every tracker at most once and returns the outcomes of the
// trackers it acted on. Trackers whose artifact is still loading are left
// Pending silently; trackers already settled for the current generation are
// skipped.
func (r *Runner) Tick() []Outcome {
	var outcomes []Outcome

	for _, t := range r.trackers.All() {
		a, ok := r.store.Get(t.Bound)
		if !ok {
			if r.store.Removed(t.Bound) {
				// Report unresolvability once, then leave the tracker inert.
				var ub *script.UnresolvableBinding
				if errors.As(t.Err, &ub) {
					continue
				}
				t.State = StateFailed
				t.Err = &script.UnresolvableBinding{ID: t.Bound}
				log.Errorf("owner %s: %v", t.Owner, t.Err)
				outcomes = append(outcomes, Outcome{Owner: t.Owner, State: t.State, Err: t.Err})
			}
			// Not loaded yet: revisit next tick.
			continue
		}

		// A generation bump since the tracker last observed the artifact
		// forces it back to Pending, whatever its stored state says.
		if t.SeenGeneration < a.Generation {
			t.State = StatePending
			t.SeenGeneration = a.Generation
			t.Err = nil
		}

		if t.State != StatePending {
			continue
		}

		chunk, err := r.store.Chunk(t.Bound)
		if err != nil {
			t.State = StateFailed
			t.Err = err
			log.Errorf("owner %s: materializing %s: %v", t.Owner, t.Bound, err)
			outcomes = append(outcomes, Outcome{Owner: t.Owner, State: t.State, Err: t.Err})
			continue
		}

		engine := r.pool.Acquire()
		_, err = engine.Execute(chunk)
		r.pool.Release(engine)

		if err != nil {
			t.Err = &script.RuntimeTrap{Detail: err.Error(), Err: err}
			if r.RetryOnTrap {
				t.State = StatePending
			} else {
				t.State = StateFailed
			}
			log.Errorf("owner %s: executing %s: %v", t.Owner, t.Bound, err)
			outcomes = append(outcomes, Outcome{Owner: t.Owner, State: t.State, Err: t.Err})
			continue
		}

		t.State = StateExecuted
		t.Err = nil
		log.Infof("owner %s: executed %s generation %d", t.Owner, t.Bound, t.SeenGeneration)
		outcomes = append(outcomes, Outcome{Owner: t.Owner, State: t.State})
	}

	return outcomes
}
