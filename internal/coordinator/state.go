// File: internal/coordinator/state.go
package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// StateStore keeps one replicated StateSnapshot per run. Replicas are
// advisory: they follow the worker's progress stream and can lag it, so
// consumers pair reads with the staleness check.
type StateStore struct {
	mu         sync.RWMutex
	runs       map[string]schemas.StateSnapshot
	staleAfter time.Duration
	now        func() time.Time
}

// NewStateStore builds a store whose snapshots go stale after staleAfter of
// silence. A zero staleAfter disables staleness detection.
func NewStateStore(staleAfter time.Duration) *StateStore {
	return &StateStore{
		runs:       make(map[string]schemas.StateSnapshot),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Apply folds a progress update into the run's replica and returns the new
// snapshot.
func (s *StateStore) Apply(update schemas.ProgressUpdate) schemas.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := schemas.StateSnapshot{
		RunID:     update.RunID,
		Phase:     update.Phase,
		Processed: update.Processed,
		Total:     update.Total,
		UpdatedAt: s.now(),
	}
	s.runs[update.RunID] = snap
	return snap
}

// SetPhase moves a run's replica to the given phase, creating the replica if
// the run was never seen before.
func (s *StateStore) SetPhase(runID string, phase schemas.RunPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.runs[runID]
	snap.RunID = runID
	snap.Phase = phase
	snap.UpdatedAt = s.now()
	s.runs[runID] = snap
}

// Get returns the replica for a run.
func (s *StateStore) Get(runID string) (schemas.StateSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.runs[runID]
	return snap, ok
}

// Stale reports whether the run's replica has gone silent past the store's
// horizon. Unknown runs are not stale.
func (s *StateStore) Stale(runID string) bool {
	if s.staleAfter <= 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.runs[runID]
	if !ok {
		return false
	}
	return snap.Stale(s.staleAfter, s.now())
}

// Snapshot returns every replica, ordered by run ID for stable output.
func (s *StateStore) Snapshot() []schemas.StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schemas.StateSnapshot, 0, len(s.runs))
	for _, snap := range s.runs {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out
}
