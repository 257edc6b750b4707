package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mapgrove/mapsync/internal/adapter"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/store"
	"github.com/mapgrove/mapsync/models"
)

const openVaultLockOp = "open-vault"

type vaultSwitcher struct {
	vaults store.VaultRepository
	maps   store.MapRepository
	remote adapter.RemoteAdapter
	queue  OperationQueue
	locks  LockManager
	events *EventBus
	logger *logger.Logger

	mu          sync.RWMutex
	activeVault string
	state       VaultState
}

// NewVaultSwitcher constructs the active-vault lifecycle manager.
func NewVaultSwitcher(
	storages *store.Storages,
	remote adapter.RemoteAdapter,
	queue OperationQueue,
	locks LockManager,
	events *EventBus,
	logger *logger.Logger,
) VaultSwitcher {
	return &vaultSwitcher{
		vaults: storages.Vaults,
		maps:   storages.Maps,
		remote: remote,
		queue:  queue,
		locks:  locks,
		events: events,
		logger: logger,
		state:  VaultClosed,
	}
}

// OpenVault implements [VaultSwitcher]. The previously active vault's cache
// is evicted before the new vault loads, so at most one vault is resident
// at a time. Reconciliation with the backend runs under the advisory vault
// lock; failure to reach the backend degrades to serving the cached copy
// instead of failing the open.
func (s *vaultSwitcher) OpenVault(ctx context.Context, vaultID string) error {
	ctx = s.logger.WithContext(ctx)
	log := logger.FromContext(ctx)

	vault, err := s.vaults.GetVault(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("open vault %s: %w", vaultID, err)
	}

	s.mu.Lock()
	previous := s.activeVault
	s.activeVault = vaultID
	s.state = VaultLoading
	s.mu.Unlock()

	if previous != "" && previous != vaultID {
		s.maps.EvictVault(previous)
	}

	if err := s.reconcile(ctx, vault); err != nil {
		if vault.LastFullSync.IsZero() {
			// Nothing cached to fall back on.
			s.mu.Lock()
			s.activeVault = ""
			s.state = VaultClosed
			s.mu.Unlock()
			return fmt.Errorf("open vault %s: %w", vaultID, err)
		}
		log.Warn().Err(err).
			Str("vault_id", vaultID).
			Msg("reconciliation failed, serving cached vault")
	}

	if err := s.vaults.TouchOpened(ctx, vaultID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("vault_id", vaultID).Msg("recording vault open time failed")
	}

	s.mu.Lock()
	s.state = VaultReady
	s.mu.Unlock()

	return nil
}

// State implements [VaultSwitcher].
func (s *vaultSwitcher) State(vaultID string) VaultState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if vaultID != s.activeVault || s.activeVault == "" {
		return VaultClosed
	}
	return s.state
}

// ActiveVault implements [VaultSwitcher].
func (s *vaultSwitcher) ActiveVault() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeVault
}

// reconcile brings the local copy of the vault up to date with the
// backend. A never-pulled vault gets a full pull. A cached vault is
// compared by vault timestamp first; when the backend moved on, each
// remote file whose revision differs from the local one is pulled or
// queued for conflict resolution via the map's own sync path. Dirty local
// maps are re-enqueued in both cases.
func (s *vaultSwitcher) reconcile(ctx context.Context, vault models.Vault) error {
	log := logger.FromContext(ctx)

	remoteTS, err := s.remote.GetVaultTimestamp(ctx, vault.ID)
	if err != nil {
		return fmt.Errorf("read remote vault timestamp: %w", err)
	}

	fresh := !vault.LastFullSync.IsZero() && !remoteTS.After(vault.RemoteTimestamp)
	if fresh {
		return s.enqueueDirty(ctx, vault.ID)
	}

	lock, err := s.locks.Acquire(ctx, vault.ID, openVaultLockOp, 0)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			// Another device is reconciling; the cached copy serves until
			// the next open or sync tick.
			log.Info().Str("vault_id", vault.ID).Msg("vault locked by another sync, skipping merge pass")
			return s.enqueueDirty(ctx, vault.ID)
		}
		return err
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lock); releaseErr != nil {
			log.Warn().Err(releaseErr).Str("vault_id", vault.ID).Msg("releasing vault lock failed")
		}
	}()

	files, err := s.remote.ListFiles(ctx, vault.ID)
	if err != nil {
		return fmt.Errorf("list remote vault files: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.mergeFile(ctx, vault.ID, f); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if err := s.vaults.UpdateSyncInfo(ctx, vault.ID, now, remoteTS); err != nil {
		return fmt.Errorf("record vault sync info: %w", err)
	}

	return s.enqueueDirty(ctx, vault.ID)
}

// mergeFile reconciles one remote file with its local counterpart. The
// local copy is only overwritten when it is clean; a dirty local map keeps
// its edits and goes through the queue and resolver instead.
func (s *vaultSwitcher) mergeFile(ctx context.Context, vaultID string, f models.RemoteFile) error {
	local, err := s.maps.GetMap(ctx, f.FileID)
	switch {
	case errors.Is(err, store.ErrMapNotFound):
		return s.pull(ctx, vaultID, f)
	case errors.Is(err, store.ErrCorruptedMap):
		// A local copy that no longer decodes is recovered from the
		// backend, losing at most that map's unsynced edits.
		return s.pull(ctx, vaultID, f)
	case err != nil:
		return err
	}

	if local.RemoteRevision == f.Revision {
		return nil
	}
	if local.Dirty() {
		// Diverged: remote moved and local has edits. The enqueueDirty pass
		// picks this map up; its write will hit the revision precondition
		// and route through the resolver.
		return nil
	}

	return s.pull(ctx, vaultID, f)
}

func (s *vaultSwitcher) pull(ctx context.Context, vaultID string, f models.RemoteFile) error {
	payload, err := s.remote.ReadFile(ctx, vaultID, f.FileID)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			// Deleted between the list and the read.
			return nil
		}
		return fmt.Errorf("pull map %s: %w", f.FileID, err)
	}

	m := payload.Map
	m.ID = f.FileID
	m.VaultID = vaultID
	m.LocalModifiedAt = payload.ModifiedTime
	m.LastSyncedAt = payload.ModifiedTime
	m.RemoteRevision = f.Revision

	if err := s.maps.SaveMap(ctx, m); err != nil {
		return fmt.Errorf("store pulled map %s: %w", f.FileID, err)
	}

	s.events.PublishStatus(models.SyncStatusChanged{MapID: m.ID, Status: models.StatusClean})
	return nil
}

// enqueueDirty re-queues every map with unsynced local changes, restoring
// the pending queue after a restart or an offline stretch.
func (s *vaultSwitcher) enqueueDirty(ctx context.Context, vaultID string) error {
	dirty, err := s.maps.DirtyMaps(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("scan dirty maps: %w", err)
	}

	for _, m := range dirty {
		s.queue.Enqueue(models.SyncOperation{
			Kind:       models.OpUpdate,
			VaultID:    vaultID,
			MapID:      m.ID,
			EnqueuedAt: time.Now().UTC(),
		})
		s.events.PublishStatus(models.SyncStatusChanged{MapID: m.ID, Status: models.StatusPending})
	}

	return nil
}
