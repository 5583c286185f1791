package domain

import "time"

// SyncState is the process-wide synchronization read model exposed to the
// presentation layer. It is owned by the service container; callers only ever
// see copies.
type SyncState struct {
	Authenticated           bool       `json:"authenticated"`
	UserID                  string     `json:"userID,omitempty"`
	LastSync                *time.Time `json:"lastSync,omitempty"` // nil until the first successful push/adopt
	UnsyncedChanges         bool       `json:"unsyncedChanges"`
	Online                  bool       `json:"online"`
	PendingRestoreAvailable bool       `json:"pendingRestoreAvailable"`
	PendingRestoreAt        *time.Time `json:"pendingRestoreAt,omitempty"` // Remote timestamp behind the pending prompt
	RealtimeConnected       bool       `json:"realtimeConnected"`
	ActiveContext           ContextID  `json:"activeContext"`
}

// BackupEnvelope is the wire/storage representation of a pushed snapshot.
// Most-recent-wins; no version chain exists beyond UpdatedAt.
type BackupEnvelope struct {
	OwnerID   string    `json:"ownerID"` // User id for personal backups, wallet id for wallet data
	Payload   Snapshot  `json:"payload"`
	UpdatedAt time.Time `json:"updatedAt"` // Server-assigned
}

// RestoreStrategy selects how a pending remote backup is applied.
type RestoreStrategy string

const (
	RestoreSkip    RestoreStrategy = "skip"
	RestoreReplace RestoreStrategy = "replace"
	RestoreMerge   RestoreStrategy = "merge"
)

// ParseRestoreStrategy validates a caller-supplied strategy string.
func ParseRestoreStrategy(s string) (RestoreStrategy, bool) {
	switch RestoreStrategy(s) {
	case RestoreSkip, RestoreReplace, RestoreMerge:
		return RestoreStrategy(s), true
	}
	return "", false
}

// PushOutcome reports what a push request actually did.
type PushOutcome string

const (
	PushCompleted PushOutcome = "completed"
	PushSkipped   PushOutcome = "skipped" // Another push was already in flight
)
