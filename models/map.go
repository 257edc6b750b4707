package models

import "time"

// Map is a single hierarchical document: a tree of nodes plus the edges
// drawn between them. It is the unit of synchronization and of conflict
// detection; one map maps to one file on the remote backend.
type Map struct {
	ID      string `json:"id"`
	VaultID string `json:"vault_id"`
	Title   string `json:"title"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`

	// LocalModifiedAt is bumped by every local mutation.
	LocalModifiedAt time.Time `json:"local_modified_at"`

	// LastSyncedAt is the time of the last successful push or pull.
	// LastSyncedAt == LocalModifiedAt means the map is clean.
	LastSyncedAt time.Time `json:"last_synced_at"`

	// RemoteRevision is the opaque version marker last observed on the
	// backend (content hash or ETag). Used for divergence detection only,
	// never for ordering.
	RemoteRevision string `json:"remote_revision"`
}

// Dirty reports whether the map has local changes not yet pushed.
func (m Map) Dirty() bool {
	return m.LocalModifiedAt.After(m.LastSyncedAt)
}

// Node is one item in a map's tree. The ID is stable across moves and
// renames so links keep resolving after edits.
type Node struct {
	ID         string    `json:"id"`
	MapID      string    `json:"map_id"`
	ParentID   *string   `json:"parent_id,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Order      int       `json:"order"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Edge is a directed link between two nodes of the same map.
type Edge struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Label  string `json:"label,omitempty"`
}
