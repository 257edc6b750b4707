package service

import (
	"context"
	"time"

	"github.com/mapgrove/mapsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// OperationQueue holds queued local mutations awaiting propagation. It
// coalesces: at most one pending operation per map, a newer operation
// replaces the older one. Operations leave the queue only on successful
// transmission or by being superseded.
type OperationQueue interface {
	// Enqueue adds op, replacing any pending operation for the same map
	// and resetting its retry state. Wakes the worker via Notify.
	Enqueue(op models.SyncOperation)

	// DequeueReady removes and returns up to limit operations whose
	// retry hold-off has passed, in first-enqueue order.
	DequeueReady(limit int, now time.Time) []PendingOperation

	// Requeue puts a failed operation back with a hold-off. If a newer
	// operation for the same map arrived meanwhile, the old one is
	// superseded and dropped.
	Requeue(p PendingOperation, notBefore time.Time)

	// Len reports the number of pending operations.
	Len() int

	// Notify returns the channel signalled on every enqueue.
	Notify() <-chan struct{}
}

// PendingOperation is a queue entry together with its retry count.
type PendingOperation struct {
	Op       models.SyncOperation
	Attempts int
}

// SyncWorker drains the operation queue against the remote backend on its
// own goroutine.
type SyncWorker interface {
	// Start launches the background goroutine. It drains on enqueue
	// notifications, on a fallback ticker, and on reconnect wake-ups.
	// Any previously running worker is stopped first.
	Start(ctx context.Context)

	// Stop signals the goroutine to exit and blocks until it has
	// fully terminated.
	Stop()

	// Wake triggers an immediate drain, used on network-reconnect events.
	Wake()
}

// ConflictResolver settles a detected divergence between the local and
// remote copy of one map. Resolution is total and deterministic:
// latest-write-wins by modification timestamp, remote wins ties, and the
// losing local content is always backed up first.
type ConflictResolver interface {
	Resolve(ctx context.Context, local models.Map) error
}

// LockManager serializes full-vault reconciliation. Locks are advisory and
// time-boxed; an expired lock is treated as absent and may be
// force-acquired, which guarantees forward progress after a crash.
type LockManager interface {
	// Acquire takes the vault lock for the named operation. A zero ttl
	// uses the configured default. Returns ErrLockHeld when a live lock
	// belongs to someone else.
	Acquire(ctx context.Context, vaultID, operation string, ttl time.Duration) (models.Lock, error)

	// Release drops the lock if it is still owned by the caller.
	Release(ctx context.Context, lock models.Lock) error

	// IsLocked reports the advisory lock state, for "sync in progress"
	// UI polling.
	IsLocked(ctx context.Context, vaultID string) (models.LockStatus, error)
}

// VaultState is the switcher's lifecycle state for the active vault.
type VaultState string

const (
	VaultClosed  VaultState = "closed"
	VaultLoading VaultState = "loading"
	VaultReady   VaultState = "ready"
)

// VaultSwitcher owns the active-vault lifecycle: progressive load on first
// open, merge pass when the backend moved on, cache eviction on switch.
type VaultSwitcher interface {
	// OpenVault reconciles the vault and makes it the active one,
	// transitioning Closed → Loading → Ready. Never-cached vaults get a
	// full pull; cached vaults get a merge pass only when the backend's
	// vault timestamp moved. Local unsynced changes found along the way
	// are queued, not pushed synchronously.
	OpenVault(ctx context.Context, vaultID string) error

	// State reports the switcher state for the given vault: Ready or
	// Loading for the active vault, Closed for everything else.
	State(vaultID string) VaultState

	// ActiveVault returns the currently open vault ID, or "".
	ActiveVault() string
}
