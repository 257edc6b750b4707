package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mapgrove/mapsync/internal/adapter"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

type conflictResolver struct {
	maps    store.MapRepository
	backups store.BackupRepository
	remote  adapter.RemoteAdapter
	events  *EventBus
	logger  *logger.Logger
}

// NewConflictResolver constructs the latest-write-wins resolver.
func NewConflictResolver(storages *store.Storages, remote adapter.RemoteAdapter, events *EventBus, logger *logger.Logger) ConflictResolver {
	return &conflictResolver{
		maps:    storages.Maps,
		backups: storages.Backups,
		remote:  remote,
		events:  events,
		logger:  logger,
	}
}

// Resolve implements [ConflictResolver]. It fetches the remote copy and
// compares modification times:
//
//   - local strictly newer: push local over remote, preconditioned on the
//     revision just observed (the common case after an offline edit);
//   - remote newer, or equal timestamps with diverged content: snapshot
//     the local copy to the backup store, replace local content with the
//     remote version, and append a resolution log entry.
//
// Ties go to remote so the rule stays total and deterministic under clock
// skew. Either way a ConflictResolved notification is published; losing
// content is discarded but never silently.
func (r *conflictResolver) Resolve(ctx context.Context, local models.Map) error {
	ctx = r.logger.WithContext(ctx)
	log := logger.FromContext(ctx)

	remote, err := r.remote.ReadFile(ctx, local.VaultID, local.ID)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			// The remote copy vanished under us; local is all there is.
			return r.pushLocal(ctx, local, "")
		}
		return fmt.Errorf("read remote copy for %s: %w", local.ID, err)
	}

	if local.LocalModifiedAt.After(remote.ModifiedTime) {
		if err := r.pushLocal(ctx, local, remote.Revision); err != nil {
			return err
		}

		entry := models.ResolutionEntry{
			MapID:      local.ID,
			Winner:     models.WinnerLocal,
			ResolvedAt: time.Now().UTC(),
		}
		if err := r.backups.AppendResolution(ctx, entry); err != nil {
			return err
		}

		r.events.PublishConflict(models.ConflictResolved{MapID: local.ID, Winner: models.WinnerLocal})
		return nil
	}

	// Remote wins. Back up the losing local content first so it stays
	// recoverable.
	now := time.Now().UTC()
	backupRef, err := r.backups.SaveBackup(ctx, local, now)
	if err != nil {
		return fmt.Errorf("backup local copy of %s: %w", local.ID, err)
	}

	replacement := remote.Map
	replacement.ID = local.ID
	replacement.VaultID = local.VaultID
	replacement.LocalModifiedAt = remote.ModifiedTime
	replacement.LastSyncedAt = remote.ModifiedTime
	replacement.RemoteRevision = remote.Revision

	if err := r.maps.SaveMap(ctx, replacement); err != nil {
		return fmt.Errorf("apply remote copy of %s: %w", local.ID, err)
	}

	entry := models.ResolutionEntry{
		MapID:      local.ID,
		Winner:     models.WinnerRemote,
		BackupRef:  backupRef,
		ResolvedAt: now,
	}
	if err := r.backups.AppendResolution(ctx, entry); err != nil {
		return err
	}

	log.Info().
		Str("map_id", local.ID).
		Str("backup_ref", backupRef).
		Msg("conflict resolved in favour of remote copy")

	r.events.PublishConflict(models.ConflictResolved{
		MapID:     local.ID,
		Winner:    models.WinnerRemote,
		BackupRef: backupRef,
	})
	r.events.PublishStatus(models.SyncStatusChanged{MapID: local.ID, Status: models.StatusClean})

	return nil
}

func (r *conflictResolver) pushLocal(ctx context.Context, local models.Map, expectedRevision string) error {
	payload := models.MapPayload{
		Map:          local,
		ModifiedTime: local.LocalModifiedAt,
	}

	revision, err := r.remote.WriteFile(ctx, local.VaultID, local.ID, payload, expectedRevision)
	if err != nil {
		return fmt.Errorf("push local copy of %s: %w", local.ID, err)
	}

	if err := r.maps.MarkSynced(ctx, local.ID, local.LocalModifiedAt, revision); err != nil {
		return err
	}

	r.events.PublishStatus(models.SyncStatusChanged{MapID: local.ID, Status: models.StatusClean})
	return nil
}
