package master

import (
	"sort"
	"sync"

	"replog/internal/model"
)

// Stash is the master-side retention of attempted replicas, deduplicated by
// id, used to feed catch-up sync. Prune implements a bounded retention
// policy so the stash does not grow without limit (see DESIGN.md).
type Stash struct {
	mu       sync.RWMutex
	byID     map[string]model.Replica
	inOrder  []model.Replica // kept sorted by Order for Since()
}

// NewStash returns an empty stash.
func NewStash() *Stash {
	return &Stash{byID: make(map[string]model.Replica)}
}

// Insert adds replica to the stash before dispatch, so crashes mid-dispatch
// still retain it.
func (s *Stash) Insert(r model.Replica) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; exists {
		return
	}
	s.byID[r.ID] = r
	i := sort.Search(len(s.inOrder), func(i int) bool { return s.inOrder[i].Order > r.Order })
	s.inOrder = append(s.inOrder, model.Replica{})
	copy(s.inOrder[i+1:], s.inOrder[i:])
	s.inOrder[i] = r
}

// Since returns every stashed replica with Order > fromOrder, in ascending
// order, used by the catch-up replay a node's sync triggers.
func (s *Stash) Since(fromOrder uint32) []model.Replica {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Replica, 0)
	for _, r := range s.inOrder {
		if r.Order > fromOrder {
			out = append(out, r)
		}
	}
	return out
}

// Prune drops every stashed replica at or below minOrder — the minimum
// order acknowledged by every currently active node.
func (s *Stash) Prune(minOrder uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.inOrder[:0:0]
	for _, r := range s.inOrder {
		if r.Order > minOrder {
			kept = append(kept, r)
		} else {
			delete(s.byID, r.ID)
		}
	}
	s.inOrder = kept
}

// Len reports the number of stashed replicas, for diagnostics and tests.
func (s *Stash) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inOrder)
}
