package dto

import (
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
)

// SyncStateResponse mirrors domain.SyncState for the presentation layer.
type SyncStateResponse struct {
	Authenticated           bool       `json:"authenticated"`
	UserID                  string     `json:"userID,omitempty"`
	LastSync                *time.Time `json:"lastSync,omitempty"`
	UnsyncedChanges         bool       `json:"unsyncedChanges"`
	Online                  bool       `json:"online"`
	PendingRestoreAvailable bool       `json:"pendingRestoreAvailable"`
	PendingRestoreAt        *time.Time `json:"pendingRestoreAt,omitempty"`
	RealtimeConnected       bool       `json:"realtimeConnected"`
	ActiveContext           string     `json:"activeContext"`
}

// ToSyncStateResponse converts a domain.SyncState to its response DTO.
func ToSyncStateResponse(s domain.SyncState) SyncStateResponse {
	return SyncStateResponse{
		Authenticated:           s.Authenticated,
		UserID:                  s.UserID,
		LastSync:                s.LastSync,
		UnsyncedChanges:         s.UnsyncedChanges,
		Online:                  s.Online,
		PendingRestoreAvailable: s.PendingRestoreAvailable,
		PendingRestoreAt:        s.PendingRestoreAt,
		RealtimeConnected:       s.RealtimeConnected,
		ActiveContext:           string(s.ActiveContext),
	}
}

// PushResponse reports the outcome of a manual backup request.
type PushResponse struct {
	Outcome  domain.PushOutcome `json:"outcome"`
	LastSync *time.Time         `json:"lastSync,omitempty"`
}

// RestoreRequest selects how the pending remote backup should be applied.
type RestoreRequest struct {
	Strategy string `json:"strategy" binding:"required,oneof=skip replace merge"`
}

// SwitchContextRequest names the context to activate. Empty means the
// personal space.
type SwitchContextRequest struct {
	ContextID string `json:"contextID"`
}

// SetOnlineRequest flips the engine's connectivity flag.
type SetOnlineRequest struct {
	Online *bool `json:"online" binding:"required"`
}
