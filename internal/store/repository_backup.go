package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/models"
)

type backupRepository struct {
	*DB
}

func NewBackupRepository(db *DB) BackupRepository {
	return &backupRepository{DB: db}
}

// SaveBackup snapshots the full map payload before it is overwritten by the
// remote side. The returned ref is what conflict notifications carry.
func (r *backupRepository) SaveBackup(ctx context.Context, m models.Map, takenAt time.Time) (string, error) {
	log := logger.FromContext(ctx)

	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode backup payload (map_id=%s): %w", m.ID, err)
	}

	ref := uuid.NewString()
	_, err = r.DB.ExecContext(ctx, saveBackup, ref, m.ID, takenAt, string(payload))
	if err != nil {
		log.Err(err).
			Str("func", "backupRepository.SaveBackup").
			Str("map_id", m.ID).
			Msg("failed to insert backup")
		return "", fmt.Errorf("failed to save backup (map_id=%s): %w", m.ID, err)
	}

	return ref, nil
}

func (r *backupRepository) GetBackup(ctx context.Context, ref string) (models.Backup, error) {
	log := logger.FromContext(ctx)

	var (
		backup  models.Backup
		payload string
	)

	row := r.DB.QueryRowContext(ctx, getBackup, ref)
	if err := row.Scan(&backup.Ref, &backup.MapID, &backup.TakenAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Backup{}, ErrBackupNotFound
		}
		log.Err(err).
			Str("func", "backupRepository.GetBackup").
			Str("ref", ref).
			Msg("failed to scan backup row")
		return models.Backup{}, fmt.Errorf("failed to scan backup row: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &backup.Payload); err != nil {
		return models.Backup{}, fmt.Errorf("%w: bad backup payload (ref=%s): %v", ErrCorruptedMap, ref, err)
	}

	return backup, nil
}

func (r *backupRepository) AppendResolution(ctx context.Context, entry models.ResolutionEntry) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, appendResolution,
		entry.MapID,
		string(entry.Winner),
		entry.BackupRef,
		entry.ResolvedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "backupRepository.AppendResolution").
			Str("map_id", entry.MapID).
			Msg("failed to append resolution log entry")
		return fmt.Errorf("failed to append resolution entry (map_id=%s): %w", entry.MapID, err)
	}

	return nil
}

func (r *backupRepository) ListResolutions(ctx context.Context, mapID string) ([]models.ResolutionEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listResolutions, mapID)
	if err != nil {
		log.Err(err).
			Str("func", "backupRepository.ListResolutions").
			Str("map_id", mapID).
			Msg("failed to query resolution log")
		return nil, fmt.Errorf("failed to query resolution log: %w", err)
	}
	defer rows.Close()

	var entries []models.ResolutionEntry
	for rows.Next() {
		var (
			entry  models.ResolutionEntry
			winner string
		)
		if err := rows.Scan(&entry.MapID, &winner, &entry.BackupRef, &entry.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution row: %w", err)
		}
		entry.Winner = models.ConflictWinner(winner)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolution rows: %w", err)
	}

	return entries, nil
}
