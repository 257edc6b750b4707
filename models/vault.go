package models

import "time"

// Vault is a named collection of maps stored under one remote folder.
// Vault rows are never evicted locally; they are the per-vault sync
// bookkeeping that survives restarts.
type Vault struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	RemoteLocation string    `json:"remote_location"`
	LastOpened     time.Time `json:"last_opened"`

	// LastFullSync is the time of the last complete reconciliation pass.
	// Zero means the vault has never been pulled.
	LastFullSync time.Time `json:"last_full_sync"`

	// RemoteTimestamp is the last known remote modification time for the
	// vault as a whole, used to decide whether opening the vault needs a
	// merge pass at all.
	RemoteTimestamp time.Time `json:"remote_timestamp"`

	MapCount int `json:"map_count"`
}
