package runner

import (
	"sort"
	"sync"

	"github.com/fusabi-lang/fusabi-host/script"
)

// OwnerID identifies the host-side owner of a tracker (an entity, a
// session, whatever the host binds scripts to).
type OwnerID string

// State is the execution state of a tracker for its seen generation.
type State int

const (
	// StatePending means the bound artifact has not been executed for the
	// tracker's seen generation.
	StatePending State = iota
	// StateExecuted means execution succeeded for the seen generation.
	StateExecuted
	// StateFailed means materialization or execution failed, or the binding
	// became unresolvable.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExecuted:
		return "executed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tracker records one owner's intent to execute a bound artifact. Fields
// are mutated only by the Runner during a tick; concurrent readers must go
// through the TrackerSet.
type Tracker struct {
	Owner OwnerID
	Bound script.ArtifactID

	// State applies to SeenGeneration. If the artifact has advanced past
	// SeenGeneration the tracker is logically stale and the Runner re-pends
	// it before anything else.
	State          State
	SeenGeneration uint64

	// Err holds the last failure: a *script.DeserializeError,
	// *script.RuntimeTrap or *script.UnresolvableBinding. Nil unless
	// State is Failed (or a trap is pending retry).
	Err error
}

// TrackerSet is the per-owner tracker registry.
type TrackerSet struct {
	mu       sync.RWMutex
	store    *script.Store
	trackers map[OwnerID]*Tracker
}

// NewTrackerSet creates an empty registry resolving bindings against store.
func NewTrackerSet(store *script.Store) *TrackerSet {
	return &TrackerSet{
		store:    store,
		trackers: make(map[OwnerID]*Tracker),
	}
}

// Bind creates (or replaces) the tracker for an owner. The tracker starts
// Pending at the artifact's current generation, or zero if the artifact is
// not yet resolvable.
func (ts *TrackerSet) Bind(owner OwnerID, id script.ArtifactID) *Tracker {
	t := &Tracker{
		Owner: owner,
		Bound: id,
		State: StatePending,
	}
	if a, ok := ts.store.Get(id); ok {
		t.SeenGeneration = a.Generation
	}

	ts.mu.Lock()
	ts.trackers[owner] = t
	ts.mu.Unlock()
	return t
}

// Unbind removes the owner's tracker. Any in-flight load for the bound
// artifact is unaffected; its result simply has nothing to apply to.
// Returns false if the owner had no tracker.
func (ts *TrackerSet) Unbind(owner OwnerID) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.trackers[owner]; !ok {
		return false
	}
	delete(ts.trackers, owner)
	return true
}

// Get returns the tracker for an owner.
func (ts *TrackerSet) Get(owner OwnerID) (*Tracker, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.trackers[owner]
	return t, ok
}

// Len returns the number of bound trackers.
func (ts *TrackerSet) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.trackers)
}

// All returns the trackers sorted by owner. Scan order does not affect
// correctness; sorting keeps tick output stable.
func (ts *TrackerSet) All() []*Tracker {
	ts.mu.RLock()
	out := make([]*Tracker, 0, len(ts.trackers))
	for _, t := range ts.trackers {
		out = append(out, t)
	}
	ts.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}
