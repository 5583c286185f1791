package services

import (
	"sync"
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
)

// appState is the single owner of the live snapshot and the process-wide
// sync read model. All in-memory mutation happens under its lock, so at most
// one snapshot is mutated at any instant and markDirty is atomic with the
// mutation it records.
type appState struct {
	mu             sync.Mutex
	snapshot       domain.Snapshot
	syncState      domain.SyncState
	pendingDeletes []string

	// gen counts snapshot mutations and replacements. Push completion
	// compares generations to detect edits that landed while its payload
	// was on the wire: those are not in the pushed copy and must not be
	// marked clean.
	gen uint64
}

func newAppState() *appState {
	return &appState{
		snapshot: domain.DefaultSnapshot(),
		syncState: domain.SyncState{
			ActiveContext: domain.PersonalContext,
		},
	}
}

// read returns a defensive copy of the sync read model.
func (s *appState) read() domain.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *appState) readLocked() domain.SyncState {
	out := s.syncState
	if s.syncState.LastSync != nil {
		ts := *s.syncState.LastSync
		out.LastSync = &ts
	}
	if s.syncState.PendingRestoreAt != nil {
		ts := *s.syncState.PendingRestoreAt
		out.PendingRestoreAt = &ts
	}
	return out
}

// snapshotClone returns a deep copy of the live snapshot.
func (s *appState) snapshotClone() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// markDirtyLocked flips unsyncedChanges on. Idempotent: returns true only
// when the flag actually changed, so callers can skip redundant store writes.
// Must be called with the lock held, in the same critical section as the
// mutation it records.
func (s *appState) markDirtyLocked() bool {
	s.gen++
	if s.syncState.UnsyncedChanges {
		return false
	}
	s.syncState.UnsyncedChanges = true
	return true
}

func (s *appState) setLastSyncLocked(ts time.Time) {
	s.syncState.LastSync = &ts
}
