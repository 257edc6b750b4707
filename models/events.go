package models

import "time"

// SyncStatus is the per-map synchronization state surfaced to the UI layer.
type SyncStatus string

const (
	StatusClean      SyncStatus = "clean"
	StatusPending    SyncStatus = "pending"
	StatusSyncing    SyncStatus = "syncing"
	StatusConflicted SyncStatus = "conflicted"
)

// SyncStatusChanged is emitted whenever a map's sync status transitions.
type SyncStatusChanged struct {
	MapID  string     `json:"map_id"`
	Status SyncStatus `json:"status"`
}

// ConflictWinner names the side whose content survived a resolution.
type ConflictWinner string

const (
	WinnerLocal  ConflictWinner = "local"
	WinnerRemote ConflictWinner = "remote"
)

// ConflictResolved is emitted after the resolver settles a divergence.
// BackupRef is non-empty when the losing local content was backed up.
type ConflictResolved struct {
	MapID     string         `json:"map_id"`
	Winner    ConflictWinner `json:"winner"`
	BackupRef string         `json:"backup_ref,omitempty"`
}

// ResolutionEntry is the durable record of one conflict resolution.
type ResolutionEntry struct {
	MapID      string         `json:"map_id"`
	Winner     ConflictWinner `json:"winner"`
	BackupRef  string         `json:"backup_ref,omitempty"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// Backup is a snapshot of a map taken before its local content was
// overwritten by the remote side. Keyed by (MapID, TakenAt); Ref is the
// retrieval handle surfaced in notifications.
type Backup struct {
	Ref     string    `json:"ref"`
	MapID   string    `json:"map_id"`
	TakenAt time.Time `json:"taken_at"`
	Payload Map       `json:"payload"`
}
