package models

import "time"

// OperationKind classifies a queued mutation.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// SyncOperation is a queued local mutation awaiting propagation to the
// remote backend. The queue holds at most one operation per MapID: a newer
// operation for the same map replaces the older one (coalescing), so only
// the final state is ever transmitted.
type SyncOperation struct {
	Kind       OperationKind `json:"kind"`
	VaultID    string        `json:"vault_id"`
	MapID      string        `json:"map_id"`
	EnqueuedAt time.Time     `json:"enqueued_at"`

	// Payload is a snapshot of the map at enqueue time. Nil for deletes.
	Payload *Map `json:"payload,omitempty"`
}
