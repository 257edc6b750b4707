package store

import "errors"

var (
	// ErrVaultNotFound is returned when the requested vault has no local row.
	ErrVaultNotFound = errors.New("vault not found")
	// ErrMapNotFound is returned when the requested map has no local row.
	ErrMapNotFound = errors.New("map not found")
	// ErrBackupNotFound is returned when no backup exists for the given ref.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrLockHeld is returned by AcquireLock when a live (non-expired) lock
	// for the vault is held by someone else.
	ErrLockHeld = errors.New("vault lock held")
	// ErrInvalidTree is returned when a node mutation would break the tree
	// invariants: a parent that does not resolve within the same map, or a
	// cycle in the parent chain.
	ErrInvalidTree = errors.New("invalid node tree")
	// ErrCorruptedMap is returned when a stored map fails to deserialize.
	// Callers treat it as a signal to re-pull the owning vault.
	ErrCorruptedMap = errors.New("corrupted map record")
)
