package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

type lockManager struct {
	locks      store.LockRepository
	defaultTTL time.Duration
	logger     *logger.Logger
}

// NewLockManager constructs the advisory lock manager used around
// full-vault reconciliation.
func NewLockManager(locks store.LockRepository, defaultTTL time.Duration, logger *logger.Logger) LockManager {
	return &lockManager{
		locks:      locks,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Acquire implements [LockManager]. The expiry check happens inside the
// repository's single atomic write, so an expired lock left by a crashed
// sync is force-acquired rather than blocking forward progress.
func (m *lockManager) Acquire(ctx context.Context, vaultID, operation string, ttl time.Duration) (models.Lock, error) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := time.Now().UTC()
	lock := models.Lock{
		LockID:     uuid.NewString(),
		VaultID:    vaultID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
		Operation:  operation,
	}

	if err := m.locks.AcquireLock(ctx, lock); err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			return models.Lock{}, ErrLockHeld
		}
		return models.Lock{}, fmt.Errorf("acquire vault lock: %w", err)
	}

	m.logger.Debug().
		Str("vault_id", vaultID).
		Str("operation", operation).
		Time("expires_at", lock.ExpiresAt).
		Msg("vault lock acquired")

	return lock, nil
}

// Release implements [LockManager].
func (m *lockManager) Release(ctx context.Context, lock models.Lock) error {
	if err := m.locks.ReleaseLock(ctx, lock); err != nil {
		return fmt.Errorf("release vault lock: %w", err)
	}

	return nil
}

// IsLocked implements [LockManager]. Expired locks report as unlocked.
func (m *lockManager) IsLocked(ctx context.Context, vaultID string) (models.LockStatus, error) {
	lock, found, err := m.locks.GetLock(ctx, vaultID)
	if err != nil {
		return models.LockStatus{}, fmt.Errorf("read vault lock: %w", err)
	}
	if !found || lock.Expired(time.Now().UTC()) {
		return models.LockStatus{}, nil
	}

	return models.LockStatus{
		Locked:    true,
		Operation: lock.Operation,
		ExpiresAt: lock.ExpiresAt,
	}, nil
}
