package script

import (
	"fmt"
	"sync"

	"github.com/fusabi-lang/fusabi-host/bytecode"
)

// Store indexes artifacts by identity and owns generation monotonicity.
// Replacing an artifact bumps its generation and drops the cached chunk;
// removing one leaves a tombstone so trackers can tell "removed" apart from
// "not loaded yet". The tombstone carries the generation a reinstall resumes
// at: generations under one ID never go backwards, even across a remove and
// re-add (the sequence atomic file saves produce).
type Store struct {
	mu      sync.RWMutex
	entries map[ArtifactID]*entry
	removed map[ArtifactID]uint64 // ID -> generation the next install gets
}

type entry struct {
	artifact *Artifact
	chunk    *bytecode.Chunk // lazily materialized, nil until first use
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[ArtifactID]*entry),
		removed: make(map[ArtifactID]uint64),
	}
}

// Install adds or replaces the artifact for a.ID and returns the installed
// value. A new ID keeps the artifact's own generation (zero from the
// Loader); a replacement gets the old generation plus one, and an ID being
// re-added after removal continues from the tombstoned generation. In every
// case the store's counter wins over what the caller produced. Any cached
// chunk and removal tombstone for the ID are dropped.
func (s *Store) Install(a *Artifact) *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	installed := *a
	if old, ok := s.entries[a.ID]; ok {
		installed.Generation = old.artifact.Generation + 1
	} else if next, ok := s.removed[a.ID]; ok {
		installed.Generation = next
	}
	s.entries[a.ID] = &entry{artifact: &installed}
	delete(s.removed, a.ID)
	return &installed
}

// Get returns the artifact for the given ID.
func (s *Store) Get(id ArtifactID) (*Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.artifact, true
}

// Chunk returns the materialized chunk for the given ID, caching the result
// until the artifact is replaced. Correctness does not depend on the cache:
// materialization is deterministic in the artifact's bytecode.
func (s *Store) Chunk(id ArtifactID) (*bytecode.Chunk, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	if ok && e.chunk != nil {
		c := e.chunk
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no artifact for %q", id)
	}

	c, err := e.artifact.Chunk()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// The entry may have been replaced while decoding; only cache if it is
	// still the one we decoded.
	if cur, stillThere := s.entries[id]; stillThere && cur == e {
		cur.chunk = c
	}
	s.mu.Unlock()
	return c, nil
}

// Remove drops the artifact and records a tombstone. Returns false if the
// ID was not present; the tombstone is recorded even then, so a binding to
// an ID the asset source has declared gone can be reported unresolvable
// instead of waiting forever.
func (s *Store) Remove(id ArtifactID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
		s.removed[id] = e.artifact.Generation + 1
	} else if _, seen := s.removed[id]; !seen {
		s.removed[id] = 0
	}
	return ok
}

// Removed reports whether the ID was removed and has not been re-added.
func (s *Store) Removed(id ArtifactID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.removed[id]
	return ok
}

// Len returns the number of installed artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns the identities of all installed artifacts.
func (s *Store) IDs() []ArtifactID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ArtifactID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
