package models

import "time"

// Lock is an advisory, time-boxed marker serializing full-vault
// reconciliation. A lock whose ExpiresAt has passed is treated as absent,
// which bounds the blast radius of a crashed sync.
type Lock struct {
	LockID     string    `json:"lock_id"`
	VaultID    string    `json:"vault_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Operation  string    `json:"operation"`
}

// Expired reports whether the lock is past its expiry at the given time.
func (l Lock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// LockStatus is the advisory view of a vault's lock state, polled by the
// UI layer to show "sync in progress".
type LockStatus struct {
	Locked    bool      `json:"locked"`
	Operation string    `json:"operation,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
