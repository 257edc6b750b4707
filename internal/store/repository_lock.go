package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/models"
)

type lockRepository struct {
	*DB
}

func NewLockRepository(db *DB) LockRepository {
	return &lockRepository{DB: db}
}

// AcquireLock attempts the single atomic write that takes the vault lock.
// The upsert only replaces an existing row when it has expired, so exactly
// one caller can win; everyone else gets ErrLockHeld.
func (r *lockRepository) AcquireLock(ctx context.Context, lock models.Lock) error {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, upsertLock,
		lock.VaultID,
		lock.LockID,
		lock.Operation,
		lock.AcquiredAt,
		lock.ExpiresAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "lockRepository.AcquireLock").
			Str("vault_id", lock.VaultID).
			Msg("failed to execute lock upsert")
		return fmt.Errorf("failed to acquire lock (vault_id=%s): %w", lock.VaultID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (vault_id=%s): %w", lock.VaultID, err)
	}
	if affected == 0 {
		return ErrLockHeld
	}

	return nil
}

// ReleaseLock deletes the lock row, but only if it still belongs to the
// caller. Releasing a lock that expired and was force-acquired by someone
// else is a no-op.
func (r *lockRepository) ReleaseLock(ctx context.Context, lock models.Lock) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, deleteLock, lock.VaultID, lock.LockID)
	if err != nil {
		log.Err(err).
			Str("func", "lockRepository.ReleaseLock").
			Str("vault_id", lock.VaultID).
			Msg("failed to delete lock row")
		return fmt.Errorf("failed to release lock (vault_id=%s): %w", lock.VaultID, err)
	}

	return nil
}

func (r *lockRepository) GetLock(ctx context.Context, vaultID string) (models.Lock, bool, error) {
	log := logger.FromContext(ctx)

	var lock models.Lock
	row := r.DB.QueryRowContext(ctx, getLock, vaultID)
	err := row.Scan(&lock.VaultID, &lock.LockID, &lock.Operation, &lock.AcquiredAt, &lock.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Lock{}, false, nil
		}
		log.Err(err).
			Str("func", "lockRepository.GetLock").
			Str("vault_id", vaultID).
			Msg("failed to scan lock row")
		return models.Lock{}, false, fmt.Errorf("failed to scan lock row: %w", err)
	}

	return lock, true, nil
}
