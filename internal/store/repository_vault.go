package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/models"
)

type vaultRepository struct {
	*DB
}

func NewVaultRepository(db *DB) VaultRepository {
	return &vaultRepository{DB: db}
}

func (r *vaultRepository) SaveVault(ctx context.Context, vault models.Vault) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, saveVault,
		vault.ID,
		vault.Name,
		vault.RemoteLocation,
		nullableTime(vault.LastOpened),
		nullableTime(vault.LastFullSync),
		nullableTime(vault.RemoteTimestamp),
		vault.MapCount,
	)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.SaveVault").
			Str("vault_id", vault.ID).
			Msg("failed to execute upsert for vault")
		return fmt.Errorf("failed to save vault (vault_id=%s): %w", vault.ID, err)
	}

	return nil
}

func (r *vaultRepository) GetVault(ctx context.Context, vaultID string) (models.Vault, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getVault, vaultID)

	vault, err := scanVault(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Vault{}, ErrVaultNotFound
		}
		log.Err(err).
			Str("func", "vaultRepository.GetVault").
			Str("vault_id", vaultID).
			Msg("failed to scan vault row")
		return models.Vault{}, fmt.Errorf("failed to scan vault row: %w", err)
	}

	return vault, nil
}

func (r *vaultRepository) ListVaults(ctx context.Context) ([]models.Vault, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listVaults)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.ListVaults").
			Msg("failed to execute query for listing vaults")
		return nil, fmt.Errorf("failed to query vaults: %w", err)
	}
	defer rows.Close()

	var vaults []models.Vault
	for rows.Next() {
		vault, scanErr := scanVault(rows.Scan)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "vaultRepository.ListVaults").
				Msg("failed to scan vault row")
			return nil, fmt.Errorf("failed to scan vault row: %w", scanErr)
		}
		vaults = append(vaults, vault)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "vaultRepository.ListVaults").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating vault rows: %w", rowsErr)
	}

	return vaults, nil
}

func (r *vaultRepository) UpdateSyncInfo(ctx context.Context, vaultID string, lastFullSync, remoteTimestamp time.Time) error {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, updateVaultSyncInfo,
		nullableTime(lastFullSync),
		nullableTime(remoteTimestamp),
		vaultID,
	)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.UpdateSyncInfo").
			Str("vault_id", vaultID).
			Msg("failed to update vault sync info")
		return fmt.Errorf("failed to update vault sync info (vault_id=%s): %w", vaultID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (vault_id=%s): %w", vaultID, err)
	}
	if affected == 0 {
		return ErrVaultNotFound
	}

	return nil
}

func (r *vaultRepository) TouchOpened(ctx context.Context, vaultID string, at time.Time) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, touchVaultOpened, at, vaultID)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.TouchOpened").
			Str("vault_id", vaultID).
			Msg("failed to update vault last_opened")
		return fmt.Errorf("failed to touch vault (vault_id=%s): %w", vaultID, err)
	}

	return nil
}

func (r *vaultRepository) DeleteVault(ctx context.Context, vaultID string) error {
	log := logger.FromContext(ctx)

	// maps and nodes cascade via foreign keys
	_, err := r.DB.ExecContext(ctx, deleteVault, vaultID)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.DeleteVault").
			Str("vault_id", vaultID).
			Msg("failed to delete vault")
		return fmt.Errorf("failed to delete vault (vault_id=%s): %w", vaultID, err)
	}

	return nil
}

func scanVault(scan func(dest ...any) error) (models.Vault, error) {
	var (
		vault                                   models.Vault
		lastOpened, lastFullSync, remoteChanged sql.NullTime
	)

	err := scan(
		&vault.ID,
		&vault.Name,
		&vault.RemoteLocation,
		&lastOpened,
		&lastFullSync,
		&remoteChanged,
		&vault.MapCount,
	)
	if err != nil {
		return models.Vault{}, err
	}

	vault.LastOpened = lastOpened.Time
	vault.LastFullSync = lastFullSync.Time
	vault.RemoteTimestamp = remoteChanged.Time

	return vault, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
